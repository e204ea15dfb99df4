package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"baseparts.ai/internal/sim/baseparts"
	"baseparts.ai/internal/sim/catalogs"
)

// SQLiteIndex is a read-model of the last published base part registry.
// It is never consulted by the loader itself.
type SQLiteIndex struct {
	db *sql.DB
}

type PartRow struct {
	Name      string
	Class     string
	Resource  string
	Core      string
	Rank      int
	Tier      float64
	CenterX   int
	CenterY   int
	TileCount int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS parts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			resource TEXT NOT NULL,
			core TEXT NOT NULL,
			position INTEGER NOT NULL,
			tier REAL NOT NULL,
			center_x INTEGER NOT NULL,
			center_y INTEGER NOT NULL,
			tiles INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_parts_class_resource_position ON parts(class, resource, position);`,
		`CREATE TABLE IF NOT EXISTS producers (
			kind TEXT NOT NULL,
			item TEXT NOT NULL,
			block TEXT NOT NULL,
			PRIMARY KEY (kind, item)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertRegistry replaces the indexed parts and producers with reg in one
// transaction, and records the content catalog digests next to it.
func (s *SQLiteIndex) UpsertRegistry(ctx context.Context, reg *baseparts.Registry, cats *catalogs.Catalogs) error {
	if s == nil || reg == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if stats, err := json.Marshal(reg.Stats()); err == nil {
		rows = append(rows, kv{name: "baseparts", digest: reg.Digest, json: stats})
	}
	if cats != nil {
		if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
			rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
		}
		if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
			rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
		}
		if b, _ := json.Marshal(cats.Liquids.Palette); len(b) > 0 {
			rows = append(rows, kv{name: "liquids_palette", digest: cats.Liquids.Digest, json: b})
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('loaded_at',?)`, reg.LoadedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	catStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer catStmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := catStmt.ExecContext(ctx, r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM parts`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM producers`); err != nil {
		return err
	}

	partStmt, err := tx.PrepareContext(ctx, `INSERT INTO parts(name,class,resource,core,position,tier,center_x,center_y,tiles) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer partStmt.Close()
	insertList := func(list []*baseparts.Part) error {
		for rank, p := range list {
			res := ""
			if p.Class() == baseparts.ClassRequired {
				res = p.Required.String()
			}
			if _, err := partStmt.ExecContext(ctx,
				p.Name,
				p.Class().String(),
				res,
				p.Core,
				rank,
				p.Tier,
				p.CenterX,
				p.CenterY,
				len(p.Schematic.Tiles),
			); err != nil {
				return fmt.Errorf("part %s: %w", p.Name, err)
			}
		}
		return nil
	}
	if err := insertList(reg.Cores); err != nil {
		return err
	}
	if err := insertList(reg.Parts); err != nil {
		return err
	}
	for _, res := range reg.Resources() {
		if err := insertList(reg.ForResource(res)); err != nil {
			return err
		}
	}

	prodStmt, err := tx.PrepareContext(ctx, `INSERT INTO producers(kind,item,block) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer prodStmt.Close()
	for kind, m := range map[string]map[string]catalogs.BlockDef{"ore": reg.Ores, "floor": reg.OreFloors} {
		for item, b := range m {
			if _, err := prodStmt.ExecContext(ctx, kind, item, b.ID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// PartsForResource returns the indexed parts requiring res in rank order.
func (s *SQLiteIndex) PartsForResource(ctx context.Context, res catalogs.Resource) ([]PartRow, error) {
	return s.queryParts(ctx, `WHERE class=? AND resource=? ORDER BY position`, baseparts.ClassRequired.String(), res.String())
}

// PartsByClass returns the indexed parts of one class in rank order.
func (s *SQLiteIndex) PartsByClass(ctx context.Context, c baseparts.Class) ([]PartRow, error) {
	return s.queryParts(ctx, `WHERE class=? ORDER BY resource, position`, c.String())
}

func (s *SQLiteIndex) queryParts(ctx context.Context, where string, args ...any) ([]PartRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,class,resource,core,position,tier,center_x,center_y,tiles FROM parts `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PartRow
	for rows.Next() {
		var r PartRow
		if err := rows.Scan(&r.Name, &r.Class, &r.Resource, &r.Core, &r.Rank, &r.Tier, &r.CenterX, &r.CenterY, &r.TileCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Producer returns the block indexed as the ore or floor producer of item.
func (s *SQLiteIndex) Producer(ctx context.Context, kind, item string) (string, bool, error) {
	var block string
	err := s.db.QueryRowContext(ctx, `SELECT block FROM producers WHERE kind=? AND item=?`, kind, item).Scan(&block)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return block, true, nil
}

// CatalogDigest returns the digest stored for a named catalog row.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	return d, err
}
