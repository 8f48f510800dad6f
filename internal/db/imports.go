package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trailhead-planner/internal/hiking"
)

// Catalogue kinds, also the table each one is stored in.
const (
	KindStopAreas = "stop_areas"
	KindPaths     = "paths"
)

var ErrNoImport = errors.New("db: catalogue never imported")

type Import struct {
	Kind       string
	Records    int
	ImportedAt time.Time
}

// LatestImport returns the most recent successful save of the given kind.
func LatestImport(ctx context.Context, db *sql.DB, kind string) (Import, error) {
	q := `
SELECT records, imported_at
FROM catalog_imports
WHERE kind = $1
ORDER BY imported_at DESC
LIMIT 1`
	imp := Import{Kind: kind}
	if err := db.QueryRowContext(ctx, q, kind).Scan(&imp.Records, &imp.ImportedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Import{}, fmt.Errorf("%w: %s", ErrNoImport, kind)
		}
		return Import{}, err
	}
	return imp, nil
}

// Catalogue serves both stored catalogues as one unit.
type Catalogue struct {
	DB *sql.DB
}

// Latest returns the time of the most recent save of either catalogue, zero
// when neither was ever saved.
func (c Catalogue) Latest(ctx context.Context) (time.Time, error) {
	var latest time.Time
	for _, kind := range []string{KindStopAreas, KindPaths} {
		imp, err := LatestImport(ctx, c.DB, kind)
		if errors.Is(err, ErrNoImport) {
			continue
		}
		if err != nil {
			return time.Time{}, err
		}
		if imp.ImportedAt.After(latest) {
			latest = imp.ImportedAt
		}
	}
	return latest, nil
}

func (c Catalogue) Load(ctx context.Context) ([]hiking.Path, map[int]hiking.StopArea, error) {
	stops, err := LoadStopAreas(ctx, c.DB)
	if err != nil {
		return nil, nil, err
	}
	paths, err := LoadPaths(ctx, c.DB)
	if err != nil {
		return nil, nil, err
	}
	return paths, stops, nil
}
