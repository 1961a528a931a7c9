package trade

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/talgya/tradelanes/internal/economy"
	"github.com/talgya/tradelanes/internal/galaxy"
)

func setup() (*economy.State, *Ship, galaxy.Star) {
	sol, _ := galaxy.CoreCatalog().Lookup(0)
	return economy.NewState(), NewShip(1000, 50, sol.ID), sol
}

func TestBuyRecordsShortage(t *testing.T) {
	st, ship, sol := setup()

	price := st.Quote(economy.Grain, sol, 0)
	r, err := Buy(st, ship, sol, 0, economy.Grain, 10)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	if r.UnitPrice != price || r.Total != int64(price*10) {
		t.Errorf("receipt = %+v, want unit price %d", r, price)
	}
	if ship.Credits != 1000-int64(price*10) {
		t.Errorf("credits = %d", ship.Credits)
	}
	if got := st.Ledger.Net(sol.ID, economy.Grain); got != -10 {
		t.Errorf("ledger = %v, want -10", got)
	}
	hold, _ := ship.Cargo.Get(economy.Grain)
	if hold.Qty != 10 || !hold.AvgCost.Equal(decimal.NewFromInt(int64(price))) {
		t.Errorf("hold = %+v, want 10 @ %d", hold, price)
	}
	if ship.CargoFree() != 40 {
		t.Errorf("CargoFree() = %d, want 40", ship.CargoFree())
	}
}

func TestSellRecordsSurplusAndProfit(t *testing.T) {
	st, ship, sol := setup()
	ship.Cargo.Set(economy.Ore, Hold{Qty: 20, AvgCost: decimal.NewFromInt(5)})

	price := st.Quote(economy.Ore, sol, 3)
	r, err := Sell(st, ship, sol, 3, economy.Ore, 20)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}

	if got := st.Ledger.Net(sol.ID, economy.Ore); got != 20 {
		t.Errorf("ledger = %v, want +20", got)
	}
	wantProfit := decimal.NewFromInt(int64((price - 5) * 20))
	if !r.Profit.Equal(wantProfit) {
		t.Errorf("profit = %s, want %s", r.Profit, wantProfit)
	}
	if ship.Cargo.Has(economy.Ore) {
		t.Error("empty hold should be removed")
	}
	if ship.Credits != 1000+int64(price*20) {
		t.Errorf("credits = %d", ship.Credits)
	}
}

func TestAverageCost(t *testing.T) {
	st, ship, sol := setup()

	r1, err := Buy(st, ship, sol, 0, economy.Parts, 2)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Buy(st, ship, sol, 0, economy.Parts, 3)
	if err != nil {
		t.Fatal(err)
	}

	want := decimal.NewFromInt(r1.Total + r2.Total).Div(decimal.NewFromInt(5)).Round(4)
	hold, _ := ship.Cargo.Get(economy.Parts)
	if !hold.AvgCost.Equal(want) {
		t.Errorf("avg cost = %s, want %s", hold.AvgCost, want)
	}
}

func TestTradeRejections(t *testing.T) {
	tests := []struct {
		name string
		run  func(st *economy.State, ship *Ship, sol galaxy.Star) error
		want error
	}{
		{"zero quantity", func(st *economy.State, ship *Ship, sol galaxy.Star) error {
			_, err := Buy(st, ship, sol, 0, economy.Grain, 0)
			return err
		}, ErrInvalidQuantity},
		{"negative quantity", func(st *economy.State, ship *Ship, sol galaxy.Star) error {
			_, err := Sell(st, ship, sol, 0, economy.Grain, -2)
			return err
		}, ErrInvalidQuantity},
		{"unknown commodity", func(st *economy.State, ship *Ship, sol galaxy.Star) error {
			_, err := Buy(st, ship, sol, 0, economy.Commodity(42), 1)
			return err
		}, ErrUnknownCommodity},
		{"cargo full", func(st *economy.State, ship *Ship, sol galaxy.Star) error {
			_, err := Buy(st, ship, sol, 0, economy.Grain, 51)
			return err
		}, ErrCargoFull},
		{"too expensive", func(st *economy.State, ship *Ship, sol galaxy.Star) error {
			_, err := Buy(st, ship, sol, 0, economy.Tritium, 50)
			return err
		}, ErrInsufficientFunds},
		{"nothing to sell", func(st *economy.State, ship *Ship, sol galaxy.Star) error {
			_, err := Sell(st, ship, sol, 0, economy.Medicine, 1)
			return err
		}, ErrNotInCargo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ship, sol := setup()
			err := tt.run(st, ship, sol)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if ship.Credits != 1000 || st.Ledger.Len() != 0 {
				t.Error("rejected trade mutated state")
			}
		})
	}
}
