// Package persistence provides SQLite-based save documents for a game session.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/talgya/tradelanes/internal/economy"
	"github.com/talgya/tradelanes/internal/engine"
	"github.com/talgya/tradelanes/internal/trade"
)

// SaveVersion is the current save document version.
// Version 1 predates the market ledger.
const SaveVersion = 2

// ErrNewerSave is returned when a save was written by a newer build.
var ErrNewerSave = errors.New("save written by a newer version")

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS save_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS market_ledger (
		system_id INTEGER NOT NULL,
		commodity TEXT NOT NULL,
		net REAL NOT NULL,
		PRIMARY KEY (system_id, commodity)
	);

	CREATE TABLE IF NOT EXISTS active_events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		system_id INTEGER NOT NULL,
		start_day INTEGER NOT NULL,
		end_day INTEGER NOT NULL,
		modifiers_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_knowledge (
		system_id INTEGER PRIMARY KEY,
		last_visit INTEGER NOT NULL,
		prices_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cargo (
		commodity TEXT PRIMARY KEY,
		qty INTEGER NOT NULL,
		avg_cost TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_event_log_day ON event_log(day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type ledgerRow struct {
	SystemID  int     `db:"system_id"`
	Commodity string  `db:"commodity"`
	Net       float64 `db:"net"`
}

type eventRow struct {
	ID            string `db:"id"`
	Type          string `db:"type"`
	SystemID      int    `db:"system_id"`
	StartDay      int    `db:"start_day"`
	EndDay        int    `db:"end_day"`
	ModifiersJSON string `db:"modifiers_json"`
}

type knowledgeRow struct {
	SystemID   int    `db:"system_id"`
	LastVisit  int    `db:"last_visit"`
	PricesJSON string `db:"prices_json"`
}

type cargoRow struct {
	Commodity string `db:"commodity"`
	Qty       int    `db:"qty"`
	AvgCost   string `db:"avg_cost"`
}

// SaveSession writes a full save document in one transaction.
// The snapshot must be a private copy (engine.Session.Snapshot).
func (db *DB) SaveSession(snap engine.Snapshot) error {
	st := snap.Economy
	if st == nil {
		st = economy.NewState()
	}
	st.Normalize()

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"market_ledger", "active_events", "price_knowledge", "cargo", "event_log"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	var ledgerErr error
	st.Ledger.Each(func(id int, c economy.Commodity, net float64) {
		if ledgerErr != nil {
			return
		}
		_, ledgerErr = tx.Exec(
			"INSERT INTO market_ledger (system_id, commodity, net) VALUES (?, ?, ?)",
			id, c.String(), net,
		)
	})
	if ledgerErr != nil {
		return fmt.Errorf("insert ledger: %w", ledgerErr)
	}

	for _, e := range st.Events {
		modsJSON, err := json.Marshal(e.Modifiers)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		_, err = tx.Exec(`INSERT INTO active_events
			(id, type, system_id, start_day, end_day, modifiers_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, string(e.Type), e.SystemID, e.StartDay, e.EndDay, string(modsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	for _, id := range st.Knowledge.Systems() {
		kp, _ := st.Knowledge.Get(id)
		pricesJSON, err := json.Marshal(kp.Prices)
		if err != nil {
			return fmt.Errorf("encode knowledge %d: %w", id, err)
		}
		_, err = tx.Exec(
			"INSERT INTO price_knowledge (system_id, last_visit, prices_json) VALUES (?, ?, ?)",
			id, kp.LastVisit, string(pricesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert knowledge %d: %w", id, err)
		}
	}

	if snap.Ship != nil {
		var cargoErr error
		snap.Ship.Cargo.Each(func(c economy.Commodity, h trade.Hold) {
			if cargoErr != nil {
				return
			}
			_, cargoErr = tx.Exec(
				"INSERT INTO cargo (commodity, qty, avg_cost) VALUES (?, ?, ?)",
				c.String(), h.Qty, h.AvgCost.String(),
			)
		})
		if cargoErr != nil {
			return fmt.Errorf("insert cargo: %w", cargoErr)
		}
	}

	for _, e := range snap.Log {
		_, err := tx.Exec(
			"INSERT INTO event_log (day, description, category) VALUES (?, ?, ?)",
			e.Day, e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
	}

	meta := map[string]string{
		"save_version": strconv.Itoa(SaveVersion),
		"day":          strconv.Itoa(snap.Day),
		"seed":         strconv.FormatInt(snap.Seed, 10),
	}
	if snap.Ship != nil {
		meta["credits"] = strconv.FormatInt(snap.Ship.Credits, 10)
		meta["capacity"] = strconv.Itoa(snap.Ship.Capacity)
		meta["location"] = strconv.Itoa(snap.Ship.Location)
	}
	for k, v := range meta {
		if err := saveMeta(tx, k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("session saved",
		"day", snap.Day,
		"ledger_entries", st.Ledger.Len(),
		"events", len(st.Events),
		"known_systems", st.Knowledge.Len(),
	)
	return nil
}

// HasSave reports whether a save document exists.
func (db *DB) HasSave() bool {
	_, err := db.GetMeta("save_version")
	return err == nil
}

// LoadSession restores the saved session. ok is false when there is no save.
// Malformed economy data resets the economy to an empty state; day, seed and
// ship survive.
func (db *DB) LoadSession() (snap engine.Snapshot, ok bool, err error) {
	versionStr, err := db.GetMeta("save_version")
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, false, nil
	}
	if err != nil {
		return engine.Snapshot{}, false, err
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return engine.Snapshot{}, false, fmt.Errorf("parse save version %q: %w", versionStr, err)
	}
	if version > SaveVersion {
		return engine.Snapshot{}, false, fmt.Errorf("%w: %d", ErrNewerSave, version)
	}

	snap.Day = db.metaInt("day", 0)
	snap.Seed = int64(db.metaInt("seed", 0))

	snap.Ship, err = db.loadShip()
	if err != nil {
		return engine.Snapshot{}, false, err
	}

	st, err := db.loadEconomy(version)
	if err == nil {
		err = st.Validate()
	}
	if err != nil {
		slog.Warn("economy data corrupted, resetting economy", "error", err, "version", version)
		st = economy.NewState()
	}
	snap.Economy = st

	snap.Log, err = db.RecentLog(engine.MaxLogEvents)
	if err != nil {
		return engine.Snapshot{}, false, fmt.Errorf("load log: %w", err)
	}
	// RecentLog is newest first; the session log is oldest first.
	for i, j := 0, len(snap.Log)-1; i < j; i, j = i+1, j-1 {
		snap.Log[i], snap.Log[j] = snap.Log[j], snap.Log[i]
	}

	slog.Info("session loaded",
		"version", version,
		"day", snap.Day,
		"ledger_entries", st.Ledger.Len(),
		"events", len(st.Events),
		"known_systems", st.Knowledge.Len(),
	)
	return snap, true, nil
}

func (db *DB) loadShip() (*trade.Ship, error) {
	ship := trade.NewShip(
		int64(db.metaInt("credits", 0)),
		db.metaInt("capacity", 0),
		db.metaInt("location", 0),
	)

	var rows []cargoRow
	if err := db.conn.Select(&rows, "SELECT commodity, qty, avg_cost FROM cargo"); err != nil {
		return nil, fmt.Errorf("load cargo: %w", err)
	}
	for _, r := range rows {
		c, ok := economy.ParseCommodity(r.Commodity)
		if !ok || r.Qty <= 0 {
			slog.Warn("dropping unreadable cargo", "commodity", r.Commodity, "qty", r.Qty)
			continue
		}
		cost, err := decimal.NewFromString(r.AvgCost)
		if err != nil {
			cost = decimal.Zero
		}
		ship.Cargo.Set(c, trade.Hold{Qty: r.Qty, AvgCost: cost})
	}
	return ship, nil
}

// loadEconomy decodes the economy tables. Any malformed row is an error.
func (db *DB) loadEconomy(version int) (*economy.State, error) {
	st := economy.NewState()

	if version >= 2 {
		var rows []ledgerRow
		if err := db.conn.Select(&rows, "SELECT system_id, commodity, net FROM market_ledger ORDER BY system_id, commodity"); err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		for _, r := range rows {
			c, ok := economy.ParseCommodity(r.Commodity)
			if !ok {
				return nil, fmt.Errorf("ledger row %d: %w: %q", r.SystemID, economy.ErrUnknownCommodity, r.Commodity)
			}
			if err := st.Ledger.Restore(r.SystemID, c, r.Net); err != nil {
				return nil, fmt.Errorf("ledger row %d/%s: %w", r.SystemID, r.Commodity, err)
			}
		}
	}

	var events []eventRow
	if err := db.conn.Select(&events, `SELECT id, type, system_id, start_day, end_day, modifiers_json
		FROM active_events ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for _, r := range events {
		var mods economy.Table[float64]
		if err := json.Unmarshal([]byte(r.ModifiersJSON), &mods); err != nil {
			return nil, fmt.Errorf("event %s modifiers: %w", r.ID, err)
		}
		st.Events = append(st.Events, economy.Event{
			ID:        r.ID,
			Type:      economy.EventType(r.Type),
			SystemID:  r.SystemID,
			StartDay:  r.StartDay,
			EndDay:    r.EndDay,
			Modifiers: mods,
		})
	}

	var known []knowledgeRow
	if err := db.conn.Select(&known, "SELECT system_id, last_visit, prices_json FROM price_knowledge"); err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}
	for _, r := range known {
		var prices economy.Table[int]
		if err := json.Unmarshal([]byte(r.PricesJSON), &prices); err != nil {
			return nil, fmt.Errorf("knowledge %d prices: %w", r.SystemID, err)
		}
		st.Knowledge.Put(r.SystemID, economy.KnownPrices{LastVisit: r.LastVisit, Prices: prices})
	}

	return st, nil
}

// RecentLog returns the most recent N log entries, newest first.
func (db *DB) RecentLog(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT day, description, category FROM event_log ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in save metadata.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM save_meta WHERE key = ?", key)
	return value, err
}

func (db *DB) metaInt(key string, def int) int {
	v, err := db.GetMeta(key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("unreadable save metadata", "key", key, "value", v)
		return def
	}
	return n
}

func saveMeta(e sqlx.Execer, key, value string) error {
	_, err := e.Exec(
		"INSERT OR REPLACE INTO save_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}
