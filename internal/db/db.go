package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"trailhead-planner/internal/hiking"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS stop_areas (
  id   integer PRIMARY KEY,
  name text    NOT NULL,
  x    integer NOT NULL,
  y    integer NOT NULL
);
CREATE TABLE IF NOT EXISTS paths (
  src      integer NOT NULL,
  dest     integer NOT NULL,
  dist     integer NOT NULL,
  srcdist  integer NOT NULL,
  destdist integer NOT NULL,
  etapp    text    NOT NULL,
  PRIMARY KEY (src, dest)
);
CREATE TABLE IF NOT EXISTS catalog_imports (
  kind        text        NOT NULL,
  records     integer     NOT NULL,
  imported_at timestamptz NOT NULL DEFAULT now()
);`

// EnsureSchema creates the catalogue tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveStopAreas replaces the stored stop-area catalogue.
func SaveStopAreas(ctx context.Context, db *sql.DB, stops map[int]hiking.StopArea) error {
	return replace(ctx, db, KindStopAreas, len(stops), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO stop_areas (id, name, x, y) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("prepare stop area insert: %w", err)
		}
		defer stmt.Close()
		ids := make([]int, 0, len(stops))
		for id := range stops {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			s := stops[id]
			if _, err := stmt.ExecContext(ctx, s.ID, s.Name, s.X, s.Y); err != nil {
				return fmt.Errorf("insert stop area %d: %w", s.ID, err)
			}
		}
		return nil
	})
}

func LoadStopAreas(ctx context.Context, db *sql.DB) (map[int]hiking.StopArea, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, x, y FROM stop_areas`)
	if err != nil {
		return nil, fmt.Errorf("query stop areas: %w", err)
	}
	defer rows.Close()
	out := make(map[int]hiking.StopArea)
	for rows.Next() {
		var s hiking.StopArea
		if err := rows.Scan(&s.ID, &s.Name, &s.X, &s.Y); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// SavePaths replaces the stored path catalogue.
func SavePaths(ctx context.Context, db *sql.DB, paths []hiking.Path) error {
	return replace(ctx, db, KindPaths, len(paths), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO paths (src, dest, dist, srcdist, destdist, etapp) VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return fmt.Errorf("prepare path insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range paths {
			if _, err := stmt.ExecContext(ctx, p.Src, p.Dest, p.Dist, p.SrcDist, p.DestDist, p.Stages); err != nil {
				return fmt.Errorf("insert path %d -> %d: %w", p.Src, p.Dest, err)
			}
		}
		return nil
	})
}

// LoadPaths returns the stored path catalogue ordered by (src, dest).
func LoadPaths(ctx context.Context, db *sql.DB) ([]hiking.Path, error) {
	rows, err := db.QueryContext(ctx, `SELECT src, dest, dist, srcdist, destdist, etapp FROM paths ORDER BY src, dest`)
	if err != nil {
		return nil, fmt.Errorf("query paths: %w", err)
	}
	defer rows.Close()
	var out []hiking.Path
	for rows.Next() {
		var p hiking.Path
		if err := rows.Scan(&p.Src, &p.Dest, &p.Dist, &p.SrcDist, &p.DestDist, &p.Stages); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// replace empties the table for kind, refills it with insert and records the
// import, all in one transaction.
func replace(ctx context.Context, db *sql.DB, kind string, records int, insert func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+kind); err != nil {
		return fmt.Errorf("clear %s: %w", kind, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_imports (kind, records) VALUES ($1, $2)`, kind, records); err != nil {
		return fmt.Errorf("record %s import: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", kind, err)
	}
	return nil
}
