// Package catalog provides SQLite-backed persistence for the movie library.
//
// The catalog holds one row per movie (the movies table) plus per-viewer
// playback positions (the watch_history table). The database uses WAL mode
// with a busy timeout so that streaming reads and scan writes can overlap
// without "database is locked" errors.
//
// # Identity and Deduplication
//
// source_path carries a UNIQUE constraint and is the real identity of an
// entry: two catalog rows can never point at the same media file. Titles are
// display metadata and may collide. Scans check FindByTitleOrPath before
// inserting; the constraint backstops the race where two scans observe the
// same file concurrently, surfacing as [ErrDuplicate] which callers count as
// a skip.
//
// # Timeouts
//
// Every operation wraps its context with a 5 second timeout. Callers pass
// their request context so cancellation propagates.
package catalog
