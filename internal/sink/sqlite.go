package sink

import (
	"context"
	"database/sql"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	eventTableName  = "attendance_events"
	eventTimeLayout = time.RFC3339
)

type sqliteSink struct {
	db   *sql.DB
	path string
}

func newSQLiteSink(uri string) (Sink, error) {
	dsn := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(uri), "sqlite://"))
	if dsn == "" {
		return nil, pkgerrors.New("sink: sqlite uri is empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "sink: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteSink{db: db, path: dsn}, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=10000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return pkgerrors.Wrapf(err, "sink: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	createTable := `CREATE TABLE IF NOT EXISTS ` + eventTableName + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_user_id TEXT NOT NULL,
		event_time TEXT NOT NULL,
		event_type INTEGER NOT NULL,
		device_model TEXT NOT NULL,
		device_serial TEXT NOT NULL,
		device_name TEXT,
		event_minor INTEGER NOT NULL DEFAULT 0
	);`
	if _, err := db.Exec(createTable); err != nil {
		return pkgerrors.Wrap(err, "sink: init sqlite schema failed")
	}
	index := `CREATE INDEX IF NOT EXISTS idx_attendance_device_time
		ON ` + eventTableName + `(device_serial, device_model, event_time DESC);`
	if _, err := db.Exec(index); err != nil {
		return pkgerrors.Wrap(err, "sink: init sqlite index failed")
	}
	return nil
}

func (s *sqliteSink) LastSyncedTime(ctx context.Context, deviceModel, deviceSerial string) (time.Time, bool, error) {
	if s == nil || s.db == nil {
		return time.Time{}, false, pkgerrors.New("sink: sqlite sink nil")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT MAX(event_time) FROM `+eventTableName+` WHERE device_serial = ? AND device_model = ?`,
		deviceSerial, deviceModel)
	var raw sql.NullString
	if err := row.Scan(&raw); err != nil {
		return time.Time{}, false, &Error{Op: "last sync query", Err: err}
	}
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return time.Time{}, false, nil
	}
	ts, err := time.Parse(eventTimeLayout, raw.String)
	if err != nil {
		return time.Time{}, false, &Error{Op: "last sync parse", Err: err}
	}
	return ts, true, nil
}

func (s *sqliteSink) Persist(ctx context.Context, records []Record) error {
	if s == nil || s.db == nil {
		return pkgerrors.New("sink: sqlite sink nil")
	}
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "begin batch", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+eventTableName+`
		(event_user_id, event_time, event_type, device_model, device_serial, device_name, event_minor)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return &Error{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()
	for _, record := range records {
		if _, err := stmt.ExecContext(ctx,
			record.EmployeeID,
			record.EventTime.Format(eventTimeLayout),
			record.EventType,
			record.DeviceModel,
			record.DeviceSerial,
			record.DeviceName,
			record.EventMinor,
		); err != nil {
			tx.Rollback()
			return &Error{Op: "insert batch", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Op: "commit batch", Err: err}
	}
	log.Debug().Int("records", len(records)).Str("db", s.path).Msg("attendance batch persisted")
	return nil
}

func (s *sqliteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteSink) Name() string {
	if s == nil || s.path == "" {
		return "sqlite"
	}
	return "sqlite:" + s.path
}
