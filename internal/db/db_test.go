package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead-planner/internal/hiking"
)

func TestSavePathsReplacesCatalogue(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	paths := []hiking.Path{
		{Dist: 12000, SrcDist: 300, DestDist: 200, Src: 1, Dest: 2, Stages: "5_1;5_2"},
		{Dist: 12000, SrcDist: 200, DestDist: 300, Src: 2, Dest: 1, Stages: "5_2;5_1"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM paths")).WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO paths"))
	for _, p := range paths {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO paths")).
			WithArgs(p.Src, p.Dest, p.Dist, p.SrcDist, p.DestDist, p.Stages).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog_imports")).
		WithArgs(KindPaths, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, SavePaths(context.Background(), conn, paths))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePathsRollsBackOnFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM paths")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO paths"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO paths")).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err = SavePaths(context.Background(), conn, []hiking.Path{{Dist: 5000, Src: 1, Dest: 2, Stages: "1_1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert path 1 -> 2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPaths(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	rows := sqlmock.NewRows([]string{"src", "dest", "dist", "srcdist", "destdist", "etapp"}).
		AddRow(1, 2, 12000, 300, 200, "5_1;5_2").
		AddRow(2, 1, 12000, 200, 300, "5_2;5_1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT src, dest, dist, srcdist, destdist, etapp FROM paths")).WillReturnRows(rows)

	got, err := LoadPaths(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, []hiking.Path{
		{Dist: 12000, SrcDist: 300, DestDist: 200, Src: 1, Dest: 2, Stages: "5_1;5_2"},
		{Dist: 12000, SrcDist: 200, DestDist: 300, Src: 2, Dest: 1, Stages: "5_2;5_1"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStopAreasInIDOrder(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	stops := map[int]hiking.StopArea{
		83045: {ID: 83045, Name: "Kivik Centrum", X: 6181210, Y: 1405270},
		81001: {ID: 81001, Name: "Simrishamn busstation", X: 6167040, Y: 1411020},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM stop_areas")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO stop_areas"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stop_areas")).
		WithArgs(81001, "Simrishamn busstation", 6167040, 1411020).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stop_areas")).
		WithArgs(83045, "Kivik Centrum", 6181210, 1405270).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog_imports")).
		WithArgs(KindStopAreas, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, SaveStopAreas(context.Background(), conn, stops))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadStopAreas(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, x, y FROM stop_areas")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "x", "y"}).AddRow(81001, "Simrishamn busstation", 6167040, 1411020))

	got, err := LoadStopAreas(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, map[int]hiking.StopArea{81001: {ID: 81001, Name: "Simrishamn busstation", X: 6167040, Y: 1411020}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS stop_areas").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), conn))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestImport(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM catalog_imports").WithArgs(KindPaths).
		WillReturnRows(sqlmock.NewRows([]string{"records", "imported_at"}).AddRow(412, at))
	mock.ExpectQuery("FROM catalog_imports").WithArgs(KindStopAreas).
		WillReturnRows(sqlmock.NewRows([]string{"records", "imported_at"}))

	imp, err := LatestImport(context.Background(), conn, KindPaths)
	require.NoError(t, err)
	assert.Equal(t, Import{Kind: KindPaths, Records: 412, ImportedAt: at}, imp)

	_, err = LatestImport(context.Background(), conn, KindStopAreas)
	require.ErrorIs(t, err, ErrNoImport)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithDBName(t *testing.T) {
	cases := []struct {
		dsn, name, want string
	}{
		{"postgres://u:p@db:5432/postgres?sslmode=disable", "trails", "postgres://u:p@db:5432/trails?sslmode=disable"},
		{"postgresql://db/x", "/trails", "postgresql://db/trails"},
		{"db:5432/x", "trails", "postgres://db:5432/trails"},
		{"postgres://db/x", "", "postgres://db/x"},
	}
	for _, c := range cases {
		got, err := WithDBName(c.dsn, c.name)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := WithDBName("", "trails")
	assert.Error(t, err)
	_, err = WithDBName("mysql://db/x", "trails")
	assert.Error(t, err)
}

func TestCatalogueLatestTakesNewestKind(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	older := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)
	mock.ExpectQuery("FROM catalog_imports").WithArgs(KindStopAreas).
		WillReturnRows(sqlmock.NewRows([]string{"records", "imported_at"}).AddRow(90, older))
	mock.ExpectQuery("FROM catalog_imports").WithArgs(KindPaths).
		WillReturnRows(sqlmock.NewRows([]string{"records", "imported_at"}).AddRow(412, newer))

	got, err := Catalogue{DB: conn}.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newer, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueLatestNeverImported(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("FROM catalog_imports").WillReturnRows(sqlmock.NewRows([]string{"records", "imported_at"}))
	}
	got, err := Catalogue{DB: conn}.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
