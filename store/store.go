// Package store persists training runs to SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/SaverioMonaco/qphase"
	"github.com/SaverioMonaco/qphase/vqe"
)

// SchemaVersion guards against loading runs written by incompatible
// versions.
const SchemaVersion = 1

const (
	tableMeta   = "meta"
	tableParams = "params"
)

// Save writes the grid configuration and trained parameters of v.
// An existing file at path is overwritten.
func Save(path string, v *vqe.VQE) error {
	db, err := newDB(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	meta := [][2]string{
		{"schema_version", strconv.Itoa(SchemaVersion)},
		{"n", strconv.Itoa(v.Grid.N)},
		{"kappas", joinFloats(v.Grid.Kappas)},
		{"hs", joinFloats(v.Grid.Hs)},
		{"circuit", v.CircuitName},
	}
	for _, kv := range meta {
		sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)`, tableMeta)
		if _, err := db.ExecContext(ctx, sqlStr, kv[0], kv[1]); err != nil {
			return errors.Wrap(err, kv[0])
		}
	}

	stmt, err := db.PrepareContext(ctx, fmt.Sprintf(`INSERT OR REPLACE INTO %s (state, idx, value) VALUES (?, ?, ?)`, tableParams))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer stmt.Close()
	for i, row := range v.State.Params {
		for j, p := range row {
			if _, err := stmt.ExecContext(ctx, i, j, p); err != nil {
				return errors.Wrap(err, fmt.Sprintf("%d %d", i, j))
			}
		}
	}
	return nil
}

// Load rebuilds an engine from a file written by Save. The grid and circuit
// are reconstructed from the stored configuration, and the parameters are
// overwritten with the stored ones.
func Load(path string) (*vqe.VQE, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	meta, err := loadMeta(ctx, db)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if v := meta["schema_version"]; v != strconv.Itoa(SchemaVersion) {
		return nil, errors.Errorf("schema version %q, expected %d", v, SchemaVersion)
	}
	n, err := strconv.Atoi(meta["n"])
	if err != nil {
		return nil, errors.Wrap(err, meta["n"])
	}
	kappas, err := splitFloats(meta["kappas"])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	hs, err := splitFloats(meta["hs"])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	grid, err := qphase.GridAxes(n, kappas, hs)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	v, err := vqe.New(grid, meta["circuit"])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := loadParams(ctx, db, v); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return v, nil
}

func loadMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	sqlStr := fmt.Sprintf(`SELECT key, value FROM %s`, tableMeta)
	rows, err := db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return meta, nil
}

func loadParams(ctx context.Context, db *sql.DB, v *vqe.VQE) error {
	sqlStr := fmt.Sprintf(`SELECT state, idx, value FROM %s`, tableParams)
	rows, err := db.QueryContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var state, idx int
		var value float64
		if err := rows.Scan(&state, &idx, &value); err != nil {
			return errors.Wrap(err, "")
		}
		if state < 0 || state >= len(v.State.Params) {
			return errors.Errorf("state %d out of %d", state, len(v.State.Params))
		}
		if idx < 0 || idx >= v.NParams {
			return errors.Errorf("idx %d out of %d", idx, v.NParams)
		}
		v.State.Params[state][idx] = value
		seen++
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "")
	}
	if expected := len(v.State.Params) * v.NParams; seen != expected {
		return errors.Errorf("%d parameters, expected %d", seen, expected)
	}
	return nil
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableMeta),
		fmt.Sprintf(`CREATE TABLE %s (key TEXT, value TEXT, PRIMARY KEY (key)) STRICT`, tableMeta),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableParams),
		fmt.Sprintf(`CREATE TABLE %s (state INTEGER, idx INTEGER, value REAL, PRIMARY KEY (state, idx)) STRICT`, tableParams),
	}
	for _, sqlStr := range stmts {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}

func joinFloats(vals []float64) string {
	ss := make([]string, 0, len(vals))
	for _, v := range vals {
		ss = append(ss, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(ss, ",")
}

func splitFloats(s string) ([]float64, error) {
	vals := make([]float64, 0)
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, errors.Wrap(err, s)
		}
		vals = append(vals, v)
	}
	return vals, nil
}
