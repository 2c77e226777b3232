// Package profiler records per-opcode hit counts over DuckDB, the
// optional bytecode-execution profiler SPEC_FULL.md §3 assigns to
// github.com/marcboeker/go-duckdb: an analytical store distinct from
// classcache's sqlite store-of-record, suited to ad hoc SQL aggregation
// of hot opcodes after a run. A Recorder's Hook method is wired onto
// interp.Machine.OnOpcode, following the same optional-hook convention
// as Machine.FieldWriteGuard.
package profiler

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/chazu/classvm/interp"
)

// Recorder accumulates opcode hit counts in memory (Hook must be cheap
// enough to call on every decoded instruction) and flushes them to
// DuckDB on demand.
type Recorder struct {
	db *sql.DB

	mu     sync.Mutex
	counts [256]uint64
}

// Open creates (if absent) the opcode_hits table in the DuckDB database
// at path and returns a Recorder over it.
func Open(ctx context.Context, path string) (*Recorder, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("profiler: open %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS opcode_hits (
		opcode UTINYINT PRIMARY KEY,
		mnemonic VARCHAR,
		hits UBIGINT
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("profiler: migrate %s: %w", path, err)
	}
	return &Recorder{db: db}, nil
}

// Close releases the underlying DuckDB connection.
func (r *Recorder) Close() error { return r.db.Close() }

// Hook implements interp.Machine.OnOpcode: a single atomic-free counter
// bump under one mutex, called once per decoded instruction.
func (r *Recorder) Hook(op interp.Opcode) {
	r.mu.Lock()
	r.counts[op]++
	r.mu.Unlock()
}

// Flush upserts the in-memory hit counts into DuckDB, adding to any
// counts already recorded from a previous Flush in this process.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	snapshot := r.counts
	r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("profiler: begin flush: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opcode_hits (opcode, mnemonic, hits) VALUES (?, ?, ?)
		ON CONFLICT (opcode) DO UPDATE SET hits = opcode_hits.hits + excluded.hits`)
	if err != nil {
		return fmt.Errorf("profiler: prepare flush: %w", err)
	}
	defer stmt.Close()

	for op, hits := range snapshot {
		if hits == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, op, interp.Opcode(op).String(), hits); err != nil {
			return fmt.Errorf("profiler: flush opcode 0x%02X: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	// Drop what was just written so a later Flush adds only new hits.
	r.mu.Lock()
	for op, hits := range snapshot {
		r.counts[op] -= hits
	}
	r.mu.Unlock()
	return nil
}

// TopN returns the n opcodes with the highest recorded hit counts,
// mnemonic and count, descending — the SQL aggregation go-duckdb's
// column-store is suited to.
func (r *Recorder) TopN(ctx context.Context, n int) ([]Hit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT opcode, mnemonic, hits FROM opcode_hits ORDER BY hits DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("profiler: top %d: %w", n, err)
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Opcode, &h.Mnemonic, &h.Hits); err != nil {
			return nil, fmt.Errorf("profiler: scan hit row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Hit is one row of a TopN result.
type Hit struct {
	Opcode   uint8
	Mnemonic string
	Hits     uint64
}
