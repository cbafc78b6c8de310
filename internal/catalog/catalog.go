package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"homeflix/internal/logging"
	"homeflix/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Store manages all catalog persistence for the server.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (or creates) the catalog database at dbPath and initializes the
// schema. dbPath must be the full path to the database FILE (e.g.,
// "/database/homeflix.db") and the parent directory must already exist and be
// writable. Use startup.LoadConfig() to ensure proper directory validation
// before calling this.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Database path: %s", dbPath)

	// Diagnose potential permission issues
	if err := diagnosePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// WAL mode and busy_timeout prevent "database is locked" errors when a
	// scan writes while streams read.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Main catalog table. source_path is the load-bearing identity.
	CREATE TABLE IF NOT EXISTS movies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		source_path TEXT NOT NULL UNIQUE,
		file_size INTEGER NOT NULL DEFAULT 0,
		format TEXT NOT NULL DEFAULT '',
		duration_seconds REAL NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		release_year INTEGER NOT NULL DEFAULT 0,
		director TEXT NOT NULL DEFAULT '',
		actors TEXT NOT NULL DEFAULT '',
		runtime TEXT NOT NULL DEFAULT '',
		rated TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		awards TEXT NOT NULL DEFAULT '',
		imdb_id TEXT NOT NULL DEFAULT '',
		imdb_rating REAL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		enriched_at INTEGER,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_movies_enriched_at ON movies(enriched_at);
	CREATE INDEX IF NOT EXISTS idx_movies_created_at ON movies(created_at);

	-- Per-viewer playback position, written asynchronously by the streamer.
	CREATE TABLE IF NOT EXISTS watch_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		viewer_id TEXT NOT NULL,
		movie_id INTEGER NOT NULL,
		watch_time REAL NOT NULL DEFAULT 0,
		last_watched INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		UNIQUE(viewer_id, movie_id)
	);

	CREATE INDEX IF NOT EXISTS idx_watch_history_viewer ON watch_history(viewer_id);

	-- Store-level key/value metadata (schema version and the like).
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err = s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	err = s.checkSchemaVersion(ctx)
	return err
}

// schemaVersion is bumped whenever the schema changes incompatibly.
const schemaVersion = 1

// checkSchemaVersion refuses to open a database written by a newer build;
// downgrade writes against an unknown schema corrupt silently.
func (s *Store) checkSchemaVersion(ctx context.Context) error {
	var stored int
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO metadata (key, value) VALUES ('schema_version', ?)", schemaVersion)
		return err
	case err != nil:
		return err
	case stored > schemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", stored, schemaVersion)
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&v)
	return v, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetStats returns catalog totals for the metrics collector and health surface.
func (s *Store) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats metrics.Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&stats.TotalMovies); err != nil {
		logging.Debug("stats query failed: %v", err)
		return stats
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies WHERE enriched_at IS NOT NULL").Scan(&stats.TotalEnriched); err != nil {
		logging.Debug("stats query failed: %v", err)
	}
	return stats
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection and file size metrics
func (s *Store) UpdateDBMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))

	for suffix, label := range map[string]string{"": "main", "-wal": "wal", "-shm": "shm"} {
		if info, err := os.Stat(s.dbPath + suffix); err == nil {
			metrics.DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
		}
	}
}

// diagnosePermissions checks database directory and file permissions
func diagnosePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	logging.Debug("Database directory is writable")

	if dbInfo, err := os.Stat(dbPath); err == nil {
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", dbPath, dbInfo.Mode(), dbInfo.Size())
		if dbInfo.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file is read-only! Mode: %v", dbInfo.Mode())
		}
	}

	// WAL and SHM sidecars inherit whatever permissions sqlite created them
	// with; a read-only sidecar breaks all writes, so try to repair.
	for _, suffix := range []string{"-wal", "-shm"} {
		sidecar := dbPath + suffix
		info, err := os.Stat(sidecar)
		if err != nil {
			continue
		}
		logging.Debug("Sidecar exists: %s (mode: %v, size: %d bytes)", sidecar, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Sidecar %s is read-only! Mode: %v - this will cause write failures", sidecar, info.Mode())
			if chmodErr := os.Chmod(sidecar, 0o600); chmodErr != nil {
				logging.Error("Failed to fix %s permissions: %v", sidecar, chmodErr)
			} else {
				logging.Info("Fixed %s permissions", sidecar)
			}
		}
	}

	return nil
}
