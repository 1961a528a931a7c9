// Package trade executes player purchases and sales against the economy.
// Every completed trade is quoted by the price oracle and recorded in the market ledger.
package trade

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/talgya/tradelanes/internal/economy"
	"github.com/talgya/tradelanes/internal/galaxy"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientFunds = errors.New("insufficient credits")
	ErrCargoFull         = errors.New("not enough cargo space")
	ErrNotInCargo        = errors.New("not enough cargo to sell")
	ErrUnknownCommodity  = errors.New("unknown commodity")
)

// Hold is one commodity's slot in the cargo bay.
type Hold struct {
	Qty     int             `json:"qty"`
	AvgCost decimal.Decimal `json:"avg_cost"` // Weighted average purchase price per unit
}

// Ship is the player's trading vessel.
type Ship struct {
	Credits  int64               `json:"credits"`
	Capacity int                 `json:"capacity"`
	Location int                 `json:"location"` // System id the ship is docked at
	Cargo    economy.Table[Hold] `json:"cargo"`
}

// NewShip returns an empty ship docked at location.
func NewShip(credits int64, capacity, location int) *Ship {
	return &Ship{
		Credits:  credits,
		Capacity: capacity,
		Location: location,
	}
}

// CargoUsed returns the number of units aboard.
func (s *Ship) CargoUsed() int {
	used := 0
	s.Cargo.Each(func(_ economy.Commodity, h Hold) {
		used += h.Qty
	})
	return used
}

// CargoFree returns the remaining cargo space.
func (s *Ship) CargoFree() int {
	return s.Capacity - s.CargoUsed()
}

// Clone returns a copy of the ship. Cargo is a fixed-size table, so a value copy is deep.
func (s *Ship) Clone() *Ship {
	cp := *s
	return &cp
}

// Side is the direction of a trade from the player's point of view.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Receipt describes a completed trade.
type Receipt struct {
	Side      Side              `json:"side"`
	Good      economy.Commodity `json:"-"`
	GoodName  string            `json:"good"`
	SystemID  int               `json:"system_id"`
	Day       int               `json:"day"`
	Qty       int               `json:"qty"`
	UnitPrice int               `json:"unit_price"`
	Total     int64             `json:"total"`
	Profit    decimal.Decimal   `json:"profit"` // Realized on sales; zero on purchases
}

func (r Receipt) String() string {
	return fmt.Sprintf("%s %d %s @ %d = %d", r.Side, r.Qty, r.GoodName, r.UnitPrice, r.Total)
}

// Buy purchases qty units of good at the ship's current system on day.
// The market ledger records the purchase as a shortage (negative quantity).
func Buy(st *economy.State, ship *Ship, system galaxy.Star, day int, good economy.Commodity, qty int) (Receipt, error) {
	if err := checkOrder(good, qty); err != nil {
		return Receipt{}, err
	}
	if qty > ship.CargoFree() {
		return Receipt{}, fmt.Errorf("%w: %d free, %d requested", ErrCargoFull, ship.CargoFree(), qty)
	}

	price := st.Quote(good, system, day)
	total := int64(price) * int64(qty)
	if total > ship.Credits {
		return Receipt{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, total, ship.Credits)
	}

	if err := st.RecordTrade(system.ID, good, -float64(qty)); err != nil {
		return Receipt{}, fmt.Errorf("record purchase: %w", err)
	}

	ship.Credits -= total
	hold, _ := ship.Cargo.Get(good)
	held := decimal.NewFromInt(int64(hold.Qty))
	bought := decimal.NewFromInt(int64(qty))
	hold.AvgCost = hold.AvgCost.Mul(held).
		Add(decimal.NewFromInt(total)).
		Div(held.Add(bought)).
		Round(4)
	hold.Qty += qty
	ship.Cargo.Set(good, hold)

	return Receipt{
		Side:      SideBuy,
		Good:      good,
		GoodName:  good.String(),
		SystemID:  system.ID,
		Day:       day,
		Qty:       qty,
		UnitPrice: price,
		Total:     total,
		Profit:    decimal.Zero,
	}, nil
}

// Sell sells qty units of good from the cargo bay at the current system on day.
// The market ledger records the sale as a surplus (positive quantity).
func Sell(st *economy.State, ship *Ship, system galaxy.Star, day int, good economy.Commodity, qty int) (Receipt, error) {
	if err := checkOrder(good, qty); err != nil {
		return Receipt{}, err
	}
	hold, ok := ship.Cargo.Get(good)
	if !ok || hold.Qty < qty {
		return Receipt{}, fmt.Errorf("%w: have %d %s", ErrNotInCargo, hold.Qty, good)
	}

	price := st.Quote(good, system, day)
	total := int64(price) * int64(qty)

	if err := st.RecordTrade(system.ID, good, float64(qty)); err != nil {
		return Receipt{}, fmt.Errorf("record sale: %w", err)
	}

	ship.Credits += total
	profit := decimal.NewFromInt(total).Sub(hold.AvgCost.Mul(decimal.NewFromInt(int64(qty))))
	hold.Qty -= qty
	if hold.Qty == 0 {
		ship.Cargo.Delete(good)
	} else {
		ship.Cargo.Set(good, hold)
	}

	return Receipt{
		Side:      SideSell,
		Good:      good,
		GoodName:  good.String(),
		SystemID:  system.ID,
		Day:       day,
		Qty:       qty,
		UnitPrice: price,
		Total:     total,
		Profit:    profit,
	}, nil
}

func checkOrder(good economy.Commodity, qty int) error {
	if !good.Valid() {
		return ErrUnknownCommodity
	}
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	return nil
}
