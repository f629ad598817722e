package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/lure/internal/model"
)

const (
	// FileName is the database file created inside the store directory.
	FileName = "lure.db"

	// lockFileName guards the store against concurrent writers.
	lockFileName = "lure.lock"

	// busyTimeoutMillis is how long SQLite waits on a locked database.
	busyTimeoutMillis = 5000
)

// EventDB is the append-only event store.
type EventDB struct {
	db     *sql.DB
	dbPath string
	lock   *flock.Flock

	readOnly    bool
	mirrorLimit int

	// mu serializes Append so insert and mirror update are atomic.
	mu     sync.Mutex
	mirror []model.Event
}

// Options configures EventDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// ReadOnly opens the store for queries only. No lock is taken and
	// Append returns ErrReadOnly.
	ReadOnly bool

	// MirrorLimit keeps only the newest MirrorLimit events in memory.
	// Zero keeps every event appended by this process.
	MirrorLimit int
}

// DefaultOptions returns the options used by the supervisor.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ReadOnlyOptions returns the options used by query commands.
func ReadOnlyOptions() Options {
	return Options{ReadOnly: true}
}

// Open opens or creates the event store in dbDir.
func Open(dbDir string, opts Options) (*EventDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if opts.CreateIfNotExists && !opts.ReadOnly {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	edb := &EventDB{
		dbPath:      dbPath,
		readOnly:    opts.ReadOnly,
		mirrorLimit: opts.MirrorLimit,
	}

	if !opts.ReadOnly {
		edb.lock = flock.New(filepath.Join(dbDir, lockFileName))
		locked, err := edb.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock event store: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dbPath)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(dbPath, opts))
	if err != nil {
		edb.unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	edb.db = db

	if opts.EnableWAL && !opts.ReadOnly {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = edb.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if !opts.ReadOnly {
		if err := edb.createTables(); err != nil {
			_ = edb.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return edb, nil
}

// buildDSN returns the modernc.org/sqlite connection string for opts.
func buildDSN(dbPath string, opts Options) string {
	mode := "rw"
	if opts.CreateIfNotExists && !opts.ReadOnly {
		mode = "rwc"
	}
	dsn := fmt.Sprintf("%s?mode=%s&_pragma=busy_timeout(%d)", dbPath, mode, busyTimeoutMillis)
	if opts.ReadOnly {
		dsn += "&_pragma=query_only(1)"
	}
	return dsn
}

// Path returns the database file path.
func (edb *EventDB) Path() string {
	return edb.dbPath
}

// Close closes the database and releases the writer lock.
func (edb *EventDB) Close() error {
	var err error
	if edb.db != nil {
		err = edb.db.Close()
	}
	edb.unlock()
	return err
}

func (edb *EventDB) unlock() {
	if edb.lock != nil {
		_ = edb.lock.Unlock()
	}
}

// createTables creates the schema if it doesn't exist.
func (edb *EventDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		service TEXT NOT NULL,
		ip TEXT NOT NULL,
		port INTEGER NOT NULL,
		request_type TEXT,
		path TEXT,
		payload TEXT,
		headers TEXT,
		tool TEXT,
		classification TEXT,
		meta TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_ip ON events(ip);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	`

	_, err := edb.db.ExecContext(context.Background(), schema)
	return err
}

// Append durably stores event, assigns its ID and adds a copy to the
// in-memory mirror. On failure the mirror is unchanged and the returned
// error wraps ErrStorageUnavailable.
func (edb *EventDB) Append(ctx context.Context, event *model.Event) (int64, error) {
	if edb.readOnly {
		return 0, ErrReadOnly
	}

	headers := event.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize headers: %w", err)
	}

	meta := event.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize meta: %w", err)
	}
	// Meta is kept in its decoded JSON form so that the event, the mirror
	// and the stored row hold the same value types.
	stored := make(map[string]any, len(meta))
	if err := json.Unmarshal(metaJSON, &stored); err != nil {
		return 0, fmt.Errorf("failed to normalize meta: %w", err)
	}

	query := `
	INSERT INTO events (timestamp, service, ip, port, request_type, path, payload, headers, tool, classification, meta)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	edb.mu.Lock()
	defer edb.mu.Unlock()

	result, err := edb.db.ExecContext(ctx, query,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.Service),
		event.IP,
		event.Port,
		nullString(event.RequestType),
		nullString(event.Path),
		nullString(event.Payload),
		string(headersJSON),
		nullString(string(event.Tool)),
		nullString(string(event.Classification)),
		string(metaJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w: %w", ErrStorageUnavailable, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event id: %w: %w", ErrStorageUnavailable, err)
	}

	event.ID = id
	event.Headers = headers
	event.Meta = stored
	edb.mirror = append(edb.mirror, event.Clone())
	if edb.mirrorLimit > 0 && len(edb.mirror) > edb.mirrorLimit {
		edb.mirror = append([]model.Event(nil), edb.mirror[len(edb.mirror)-edb.mirrorLimit:]...)
	}

	return id, nil
}

// Mirror returns a copy of the events appended by this handle, in append order.
func (edb *EventDB) Mirror() []model.Event {
	edb.mu.Lock()
	defer edb.mu.Unlock()

	out := make([]model.Event, len(edb.mirror))
	for i := range edb.mirror {
		out[i] = edb.mirror[i].Clone()
	}
	return out
}

const selectColumns = `id, timestamp, service, ip, port, request_type, path, payload, headers, tool, classification, meta`

// Recent returns up to limit events, newest first. A non-positive limit
// returns an empty slice.
func (edb *EventDB) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return []model.Event{}, nil
	}
	query := `SELECT ` + selectColumns + ` FROM events ORDER BY id DESC LIMIT ?`
	return edb.queryEvents(ctx, query, limit)
}

// All returns every stored event in ascending id order.
func (edb *EventDB) All(ctx context.Context) ([]model.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM events ORDER BY id ASC`
	return edb.queryEvents(ctx, query)
}

// Since returns up to limit events with id greater than afterID, ascending.
// It is used to page through large stores.
func (edb *EventDB) Since(ctx context.Context, afterID int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return []model.Event{}, nil
	}
	query := `SELECT ` + selectColumns + ` FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`
	return edb.queryEvents(ctx, query, afterID, limit)
}

// Count returns the number of stored events.
func (edb *EventDB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := edb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w: %w", ErrStorageUnavailable, err)
	}
	return n, nil
}

func (edb *EventDB) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := edb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w: %w", ErrStorageUnavailable, err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	var (
		e              model.Event
		timestamp      string
		service        string
		requestType    sql.NullString
		path           sql.NullString
		payload        sql.NullString
		headersJSON    sql.NullString
		tool           sql.NullString
		classification sql.NullString
		metaJSON       sql.NullString
	)

	if err := rows.Scan(
		&e.ID,
		&timestamp,
		&service,
		&e.IP,
		&e.Port,
		&requestType,
		&path,
		&payload,
		&headersJSON,
		&tool,
		&classification,
		&metaJSON,
	); err != nil {
		return model.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	e.Timestamp = parseTimestamp(timestamp)
	e.Service = model.Service(service)
	e.RequestType = requestType.String
	e.Path = path.String
	e.Payload = payload.String
	e.Tool = model.Tool(tool.String)
	e.Classification = model.Classification(classification.String)

	e.Headers = make(map[string]string)
	if headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &e.Headers); err != nil {
			return model.Event{}, fmt.Errorf("failed to parse headers of event %d: %w", e.ID, err)
		}
	}
	e.Meta = make(map[string]any)
	if metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &e.Meta); err != nil {
			return model.Event{}, fmt.Errorf("failed to parse meta of event %d: %w", e.ID, err)
		}
	}
	return e, nil
}

// nullString stores empty optional columns as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestampFormats lists the layouts accepted when reading stored timestamps.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999", // naive ISO-8601 written by older tooling
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
