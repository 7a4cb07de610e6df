package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/morph/pkg/core"
)

// CreateRun creates a new conversion run for a mapping.
func (s *SQLiteStore) CreateRun(mapping string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Mapping:   mapping,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("mapping", mapping))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, mapping, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Mapping, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx(),
		`SELECT id, mapping, status, started_at, completed_at, error FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.ExecContext(ctx(),
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), now, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT id, mapping, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*core.Run, error) {
	run := &core.Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := sc.Scan(&run.ID, &run.Mapping, &status, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// --- Record run operations ---

// RecordRecordRun records the conversion of one record within a run.
func (s *SQLiteStore) RecordRecordRun(rr *core.RecordRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if rr.ID == "" {
		rr.ID = generateID()
	}
	if rr.StartedAt.IsZero() {
		rr.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO record_runs (id, run_id, record, source_table, target_table, extracted, inserted, started_at, execution_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rr.ID, rr.RunID, rr.Record, rr.SourceTable, rr.TargetTable, rr.Extracted, rr.Inserted, rr.StartedAt, rr.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record run of %s: %w", rr.Record, err)
	}
	return nil
}

// GetRecordRunsForRun retrieves the record runs of a run in insertion order.
func (s *SQLiteStore) GetRecordRunsForRun(runID string) ([]*core.RecordRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT id, run_id, record, source_table, target_table, extracted, inserted, started_at, execution_ms
		 FROM record_runs WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get record runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.RecordRun
	for rows.Next() {
		rr := &core.RecordRun{}
		if err := rows.Scan(&rr.ID, &rr.RunID, &rr.Record, &rr.SourceTable, &rr.TargetTable,
			&rr.Extracted, &rr.Inserted, &rr.StartedAt, &rr.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan record run: %w", err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
