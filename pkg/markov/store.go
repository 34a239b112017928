package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrTableNotFound is returned when a named table does not exist in the store.
	ErrTableNotFound = errors.New("markov: table not found")
	// ErrHistoryTooLong is returned when persisted data holds a history longer
	// than MaxHistoryLength.
	ErrHistoryTooLong = errors.New("markov: history longer than the maximum history length")
	// ErrMaxHistoryMismatch is returned when a stored table was saved with a
	// different maximum history length.
	ErrMaxHistoryMismatch = errors.New("markov: stored maximum history length does not match")
)

// SetupSchema initializes the tables used by Store in the provided database.
// It should be called once on a new database before any other operations are
// performed. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaTables = `
CREATE TABLE IF NOT EXISTS chord_tables (
    table_id INTEGER PRIMARY KEY,
    table_name TEXT NOT NULL UNIQUE,
    max_history INTEGER NOT NULL
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS chord_vocabulary (
    chord_id INTEGER PRIMARY KEY,
    chord_text TEXT NOT NULL UNIQUE
);
`
		schemaHistories = `
CREATE TABLE IF NOT EXISTS chord_histories (
    history_id INTEGER PRIMARY KEY,
    history_text TEXT NOT NULL UNIQUE
);
`
		schemaContinuations = `
CREATE TABLE IF NOT EXISTS chord_continuations (
    table_id INTEGER NOT NULL,
    history_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    chord_id INTEGER NOT NULL,
    PRIMARY KEY (table_id, history_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaTables, schemaVocab, schemaHistories, schemaContinuations} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// TableInfo holds the metadata of a stored table.
type TableInfo struct {
	Id         int
	Name       string
	MaxHistory int
}

// Store persists named Tables in a SQLite database. Chords are stored through
// a Codec, and every continuation list is kept with its duplicates and order.
type Store[C comparable] struct {
	db                  *sql.DB
	codec               Codec[C]
	stmtGetTables       *sql.Stmt
	stmtGetTableInfo    *sql.Stmt
	stmtUpsertTable     *sql.Stmt
	stmtDeleteConts     *sql.Stmt
	stmtDeleteTable     *sql.Stmt
	stmtInsertVocab     *sql.Stmt
	stmtGetOrInsertHist *sql.Stmt
	stmtInsertCont      *sql.Stmt
	stmtLoadConts       *sql.Stmt
	stmtGetChordText    *sql.Stmt
	stmtPruneHistories  *sql.Stmt
	stmtPruneVocab      *sql.Stmt
	logger              *slog.Logger
}

// NewStore creates a Store over db using codec to convert chords to text. It
// pre-compiles all necessary SQL statements, returning an error if any
// preparation fails. SetupSchema must have been called on db.
func NewStore[C comparable](db *sql.DB, codec Codec[C]) (*Store[C], error) {
	s := &Store[C]{
		db:     db,
		codec:  codec,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetTables, `SELECT table_id, table_name, max_history FROM chord_tables;`},
		{&s.stmtGetTableInfo, `SELECT table_id, max_history FROM chord_tables WHERE table_name = ?;`},
		{&s.stmtUpsertTable, `INSERT INTO chord_tables (table_name, max_history) VALUES (?, ?) ON CONFLICT(table_name) DO UPDATE SET max_history=excluded.max_history RETURNING table_id;`},
		{&s.stmtDeleteConts, `DELETE FROM chord_continuations WHERE table_id = ?;`},
		{&s.stmtDeleteTable, `DELETE FROM chord_tables WHERE table_id = ?;`},
		{&s.stmtInsertVocab, `INSERT INTO chord_vocabulary (chord_text) VALUES (?) ON CONFLICT(chord_text) DO UPDATE SET chord_text=excluded.chord_text RETURNING chord_id;`},
		{&s.stmtGetOrInsertHist, `INSERT INTO chord_histories (history_text) VALUES (?) ON CONFLICT(history_text) DO UPDATE SET history_text=excluded.history_text RETURNING history_id;`},
		{&s.stmtInsertCont, `INSERT INTO chord_continuations (table_id, history_id, position, chord_id) VALUES (?, ?, ?, ?);`},
		{&s.stmtLoadConts, `
SELECT h.history_text, c.chord_id
FROM chord_continuations c JOIN chord_histories h ON h.history_id = c.history_id
WHERE c.table_id = ?
ORDER BY c.history_id, c.position;`},
		{&s.stmtGetChordText, `SELECT chord_text FROM chord_vocabulary WHERE chord_id = ?;`},
		{&s.stmtPruneHistories, `
DELETE FROM chord_histories
WHERE NOT EXISTS (SELECT 1 FROM chord_continuations c WHERE c.history_id = chord_histories.history_id);`},
		// A chord is still referenced if it is a continuation or appears in a
		// space separated history key.
		{&s.stmtPruneVocab, `
DELETE FROM chord_vocabulary
WHERE NOT EXISTS (SELECT 1 FROM chord_continuations c WHERE c.chord_id = chord_vocabulary.chord_id)
  AND NOT EXISTS (SELECT 1 FROM chord_histories h WHERE ' ' || h.history_text || ' ' LIKE '% ' || chord_vocabulary.chord_id || ' %');`},
	}

	for _, st := range stmts {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, err
		}
		*st.dst = stmt
	}

	return s, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store[C]) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetTables,
		s.stmtGetTableInfo,
		s.stmtUpsertTable,
		s.stmtDeleteConts,
		s.stmtDeleteTable,
		s.stmtInsertVocab,
		s.stmtGetOrInsertHist,
		s.stmtInsertCont,
		s.stmtLoadConts,
		s.stmtGetChordText,
		s.stmtPruneHistories,
		s.stmtPruneVocab,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store[C]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// ListTables retrieves metadata for all stored tables, keyed by name.
func (s *Store[C]) ListTables(ctx context.Context) (map[string]TableInfo, error) {
	rows, err := s.stmtGetTables.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	tables := make(map[string]TableInfo)
	for rows.Next() {
		var info TableInfo
		if err = rows.Scan(&info.Id, &info.Name, &info.MaxHistory); err != nil {
			return nil, err
		}
		tables[info.Name] = info
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetTableInfo retrieves the metadata for a single table. It returns an error
// wrapping ErrTableNotFound if no table has that name.
func (s *Store[C]) GetTableInfo(ctx context.Context, name string) (TableInfo, error) {
	info := TableInfo{Name: name}
	err := s.stmtGetTableInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.MaxHistory)
	if errors.Is(err, sql.ErrNoRows) {
		return TableInfo{}, fmt.Errorf("%w: '%s'", ErrTableNotFound, name)
	}
	if err != nil {
		return TableInfo{}, err
	}
	return info, nil
}

// storedRow is one continuation as read from chord_continuations.
type storedRow struct {
	historyText string
	chordID     int
}

// encodedEntry is one history and its continuations in text form.
type encodedEntry struct {
	history []string
	chords  []string
}

// Save writes t under name, replacing anything previously stored under that
// name. The operation is performed within a single transaction.
func (s *Store[C]) Save(ctx context.Context, name string, t *Table[C]) error {
	entries, err := encodeEntries(t, s.codec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var tableID int
	if err = tx.StmtContext(ctx, s.stmtUpsertTable).QueryRowContext(ctx, name, MaxHistoryLength).Scan(&tableID); err != nil {
		return fmt.Errorf("failed to upsert table '%s': %w", name, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteConts).ExecContext(ctx, tableID); err != nil {
		return fmt.Errorf("failed to clear continuations for table '%s': %w", name, err)
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertHist := tx.StmtContext(ctx, s.stmtGetOrInsertHist)
	stmtInsertCont := tx.StmtContext(ctx, s.stmtInsertCont)

	vocabCache := make(map[string]int)
	chordID := func(text string) (int, error) {
		if id, ok := vocabCache[text]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&id); err != nil {
			return 0, fmt.Errorf("sql insert vocabulary error for chord '%s': %w", text, err)
		}
		vocabCache[text] = id
		return id, nil
	}

	var keyBuf []byte
	var observations int
	for _, entry := range entries {
		keyBuf = keyBuf[:0]
		for j, text := range entry.history {
			id, err := chordID(text)
			if err != nil {
				return err
			}
			if j > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, int64(id), 10)
		}
		historyKey := string(keyBuf)

		var historyID int
		if err := stmtGetOrInsertHist.QueryRowContext(ctx, historyKey).Scan(&historyID); err != nil {
			return fmt.Errorf("failed to get or insert history '%s': %w", historyKey, err)
		}

		for pos, text := range entry.chords {
			id, err := chordID(text)
			if err != nil {
				return err
			}
			if _, err := stmtInsertCont.ExecContext(ctx, tableID, historyID, pos, id); err != nil {
				return fmt.Errorf("failed to insert continuation (%s -> %s): %w", historyKey, text, err)
			}
			observations++
		}
	}

	if err = s.pruneOrphans(ctx, tx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Table saved",
		slog.String("table_name", name),
		slog.Int("table_id", tableID),
		slog.Int("histories_saved", len(entries)),
		slog.Int("observations_saved", observations),
	)

	return tx.Commit()
}

// Load reads the table stored under name into a new Table built with opts.
// It returns an error wrapping ErrTableNotFound if no table has that name.
func (s *Store[C]) Load(ctx context.Context, name string, opts ...TableOption) (*Table[C], error) {
	info, err := s.GetTableInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if info.MaxHistory != MaxHistoryLength {
		return nil, fmt.Errorf("%w: table '%s' has %d, want %d", ErrMaxHistoryMismatch, name, info.MaxHistory, MaxHistoryLength)
	}

	// Rows are drained before any vocabulary lookups so that only one
	// connection is in use at a time.
	rows, err := s.stmtLoadConts.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query continuations for table '%s': %w", name, err)
	}
	var loaded []storedRow
	for rows.Next() {
		var r storedRow
		if err = rows.Scan(&r.historyText, &r.chordID); err != nil {
			_ = rows.Close()
			return nil, err
		}
		loaded = append(loaded, r)
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	t := NewTable[C](opts...)
	chordCache := make(map[int]C)

	var current string
	var pending []C
	for i, r := range loaded {
		if i > 0 && r.historyText != current {
			if err := s.appendHistory(ctx, t, current, pending, chordCache); err != nil {
				return nil, err
			}
			pending = nil
		}
		current = r.historyText
		c, err := s.chordWithCache(ctx, r.chordID, chordCache)
		if err != nil {
			return nil, err
		}
		pending = append(pending, c)
	}
	if len(pending) > 0 {
		if err := s.appendHistory(ctx, t, current, pending, chordCache); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Table loaded",
		slog.String("table_name", name),
		slog.Int("table_id", info.Id),
		slog.Int("histories_loaded", t.Len()),
		slog.Int("observations_loaded", len(loaded)),
	)

	return t, nil
}

// appendHistory decodes a stored history key and adds chords to it in t.
func (s *Store[C]) appendHistory(ctx context.Context, t *Table[C], historyText string, chords []C, cache map[int]C) error {
	ids := strings.Fields(historyText)
	if len(ids) > MaxHistoryLength {
		return fmt.Errorf("%w: stored history '%s'", ErrHistoryTooLong, historyText)
	}
	history := make([]C, 0, len(ids))
	for _, idStr := range ids {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return fmt.Errorf("consistency error: malformed history '%s': %w", historyText, err)
		}
		c, err := s.chordWithCache(ctx, id, cache)
		if err != nil {
			return err
		}
		history = append(history, c)
	}
	t.appendRaw(NewHistory(history), chords)
	return nil
}

// chordWithCache resolves and decodes a chord id, minimizing DB lookups.
func (s *Store[C]) chordWithCache(ctx context.Context, id int, cache map[int]C) (C, error) {
	if c, ok := cache[id]; ok {
		return c, nil
	}
	var zero C
	var text string
	if err := s.stmtGetChordText.QueryRowContext(ctx, id).Scan(&text); err != nil {
		return zero, fmt.Errorf("could not get text for chord %d: %w", id, err)
	}
	c, err := s.codec.Decode(text)
	if err != nil {
		return zero, fmt.Errorf("could not decode stored chord '%s': %w", text, err)
	}
	cache[id] = c
	return c, nil
}

// Remove deletes a table and all of its continuations. Removing a table that
// does not exist is not an error. The operation is performed within a
// transaction.
func (s *Store[C]) Remove(ctx context.Context, name string) error {
	info, err := s.GetTableInfo(ctx, name)
	if errors.Is(err, ErrTableNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtDeleteConts).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove continuations for table %d: %w", info.Id, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteTable).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove table %d: %w", info.Id, err)
	}
	if err = s.pruneOrphans(ctx, tx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Table removed successfully",
		slog.String("table_name", name),
		slog.Int("table_id", info.Id),
	)

	return tx.Commit()
}

// pruneOrphans deletes histories and chords no stored table refers to any more.
func (s *Store[C]) pruneOrphans(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.StmtContext(ctx, s.stmtPruneHistories).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to prune histories: %w", err)
	}
	if _, err := tx.StmtContext(ctx, s.stmtPruneVocab).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to prune vocabulary: %w", err)
	}
	return nil
}

// encodeEntries snapshots t in text form, sorted by history for stable output.
func encodeEntries[C comparable](t *Table[C], codec Codec[C]) ([]encodedEntry, error) {
	var entries []encodedEntry
	var encErr error
	t.Range(func(h History[C], list []C) bool {
		entry := encodedEntry{
			history: make([]string, 0, h.Len()),
			chords:  make([]string, 0, len(list)),
		}
		for _, c := range h.Chords() {
			text, err := codec.Encode(c)
			if err != nil {
				encErr = fmt.Errorf("could not encode history chord %v: %w", c, err)
				return false
			}
			entry.history = append(entry.history, text)
		}
		for _, c := range list {
			text, err := codec.Encode(c)
			if err != nil {
				encErr = fmt.Errorf("could not encode chord %v: %w", c, err)
				return false
			}
			entry.chords = append(entry.chords, text)
		}
		entries = append(entries, entry)
		return true
	})
	if encErr != nil {
		return nil, encErr
	}
	sort.Slice(entries, func(i, j int) bool {
		return lessHistory(entries[i].history, entries[j].history)
	})
	return entries, nil
}

// lessHistory orders histories by length, then element by element.
func lessHistory(a, b []string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
