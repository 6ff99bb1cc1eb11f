package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/savegress/odcv/pkg/models"
)

// SQLiteStore is a SQLite-backed embedded dataset store. Event timestamps
// are persisted as Unix microseconds.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the embedded database under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "odcv.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		sensor_count INTEGER NOT NULL,
		zone_count INTEGER NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset_id TEXT NOT NULL,
		name TEXT NOT NULL,
		ts INTEGER NOT NULL,
		value REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_dataset_ts ON events(dataset_id, ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDataset persists a dataset and its events in one transaction.
func (s *SQLiteStore) SaveDataset(ctx context.Context, ds *models.Dataset, events []models.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO datasets
		 (id, name, record_count, sensor_count, zone_count, start_time, end_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.RecordCount, ds.SensorCount, ds.ZoneCount,
		ds.StartTime.UnixMicro(), ds.EndTime.UnixMicro(), ds.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE dataset_id = ?`, ds.ID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (dataset_id, name, ts, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ds.ID, ev.Name, ev.Time.UnixMicro(), ev.Value); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// ListDatasets returns all dataset descriptors, newest first.
func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, record_count, sensor_count, zone_count, start_time, end_time, created_at
		 FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var out []*models.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// GetDataset returns one dataset descriptor.
func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, record_count, sensor_count, zone_count, start_time, end_time, created_at
		 FROM datasets WHERE id = ?`, id)

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Events returns a dataset's events sorted by time.
func (s *SQLiteStore) Events(ctx context.Context, id string) ([]models.Event, error) {
	if _, err := s.GetDataset(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, ts, value FROM events WHERE dataset_id = ? ORDER BY ts`, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var name string
		var ts int64
		var value float64
		if err := rows.Scan(&name, &ts, &value); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, models.Event{Name: name, Time: time.UnixMicro(ts).UTC(), Value: value})
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and its events in one transaction.
func (s *SQLiteStore) DeleteDataset(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrDatasetNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE dataset_id = ?`, id); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return tx.Commit()
}

// ActiveDataset returns the most recently saved dataset, or nil when empty.
func (s *SQLiteStore) ActiveDataset(ctx context.Context) (*models.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, record_count, sensor_count, zone_count, start_time, end_time, created_at
		 FROM datasets ORDER BY created_at DESC LIMIT 1`)

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*models.Dataset, error) {
	var ds models.Dataset
	var start, end, created int64
	if err := row.Scan(&ds.ID, &ds.Name, &ds.RecordCount, &ds.SensorCount, &ds.ZoneCount, &start, &end, &created); err != nil {
		return nil, err
	}
	ds.StartTime = time.UnixMicro(start).UTC()
	ds.EndTime = time.UnixMicro(end).UTC()
	ds.CreatedAt = time.UnixMicro(created).UTC()
	return &ds, nil
}
