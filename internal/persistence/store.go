// Package persistence stores player and building state in SQLite and
// writes compressed world archives. All writes funnel through a single
// writer goroutine over a buffered channel, so the simulation never
// waits on disk; when the channel is full, saves are dropped and
// logged rather than blocking a tick.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

type reqKind int

const (
	reqPlayer reqKind = iota + 1
	reqBuildings
)

type saveReq struct {
	kind      reqKind
	player    sim.PlayerRecord
	buildings []sim.BuildingRecord
}

// Store is the SQLite-backed save system. It implements sim.Repository.
type Store struct {
	db *sql.DB

	ch   chan saveReq
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

// Open creates or opens the database at path and starts the writer.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		ch: make(chan saveReq, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-heavy save pattern.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS players (
	player_id  TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	x          REAL NOT NULL,
	y          REAL NOT NULL,
	z          REAL NOT NULL,
	rotation   REAL NOT NULL,
	health     REAL NOT NULL,
	max_health REAL NOT NULL,
	items      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS buildings (
	rowid_pk   INTEGER PRIMARY KEY AUTOINCREMENT,
	piece_type TEXT NOT NULL,
	tier       INTEGER NOT NULL,
	x          REAL NOT NULL,
	y          REAL NOT NULL,
	z          REAL NOT NULL,
	rotation   REAL NOT NULL,
	health     REAL NOT NULL,
	owner_id   TEXT NOT NULL,
	team_id    TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.Exec(schema)
	return err
}

// SavePlayer queues one player save. Never blocks.
func (s *Store) SavePlayer(rec sim.PlayerRecord) {
	s.enqueue(saveReq{kind: reqPlayer, player: rec})
}

// SaveBuildings queues a full replacement of the building set.
func (s *Store) SaveBuildings(recs []sim.BuildingRecord) {
	s.enqueue(saveReq{kind: reqBuildings, buildings: recs})
}

func (s *Store) enqueue(r saveReq) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		n := s.dropped.Add(1)
		if n%100 == 1 {
			log.Printf("persistence: save queue full, dropped %d saves", n)
		}
	}
}

func (s *Store) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case reqPlayer:
			err = s.writePlayer(r.player)
		case reqBuildings:
			err = s.writeBuildings(r.buildings)
		}
		if err != nil {
			log.Printf("persistence: write failed: %v", err)
		}
	}
}

func (s *Store) writePlayer(rec sim.PlayerRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
INSERT INTO players (player_id, name, x, y, z, rotation, health, max_health, items, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
ON CONFLICT(player_id) DO UPDATE SET
	name=excluded.name, x=excluded.x, y=excluded.y, z=excluded.z,
	rotation=excluded.rotation, health=excluded.health,
	max_health=excluded.max_health, items=excluded.items,
	updated_at=excluded.updated_at`,
		rec.PlayerID, rec.Name, rec.X, rec.Y, rec.Z, rec.Rotation,
		rec.Health, rec.MaxHealth, string(items))
	return err
}

// writeBuildings replaces the stored building set atomically. The set
// is small relative to write frequency, so a full rewrite beats
// tracking per-piece dirty state.
func (s *Store) writeBuildings(recs []sim.BuildingRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM buildings`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
INSERT INTO buildings (piece_type, tier, x, y, z, rotation, health, owner_id, team_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range recs {
		if _, err := stmt.Exec(b.PieceType, b.Tier, b.X, b.Y, b.Z, b.Rotation, b.Health, b.OwnerID, b.TeamID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadPlayer reads one saved player. Returns (nil, nil) when the
// player has never been saved. A corrupt item payload fails the load;
// the caller logs it and spawns the player fresh.
func (s *Store) LoadPlayer(playerID string) (*sim.PlayerRecord, error) {
	row := s.db.QueryRow(`
SELECT player_id, name, x, y, z, rotation, health, max_health, items
FROM players WHERE player_id = ?`, playerID)

	var rec sim.PlayerRecord
	var items string
	err := row.Scan(&rec.PlayerID, &rec.Name, &rec.X, &rec.Y, &rec.Z,
		&rec.Rotation, &rec.Health, &rec.MaxHealth, &items)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
		return nil, fmt.Errorf("player %s items: %w", playerID, err)
	}
	return &rec, nil
}

// LoadBuildings reads every stored piece. Rows that fail to scan are
// skipped and logged, never fatal: one corrupt row must not take the
// whole base down with it.
func (s *Store) LoadBuildings() ([]sim.BuildingRecord, error) {
	rows, err := s.db.Query(`
SELECT piece_type, tier, x, y, z, rotation, health, owner_id, team_id FROM buildings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.BuildingRecord
	for rows.Next() {
		var b sim.BuildingRecord
		if err := rows.Scan(&b.PieceType, &b.Tier, &b.X, &b.Y, &b.Z, &b.Rotation, &b.Health, &b.OwnerID, &b.TeamID); err != nil {
			log.Printf("persistence: skipping corrupt building row: %v", err)
			continue
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close drains pending saves and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
