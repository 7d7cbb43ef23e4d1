package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/panlens/api"
)

// ErrCacheMiss means no persisted snapshot matches the requested
// configuration and fingerprint. The caller falls back to a fresh parse.
var ErrCacheMiss = errors.New("no cached snapshot for fingerprint")

// Open opens (creating if needed) the snapshot cache database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		config TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mtime INTEGER NOT NULL,
		saved_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS records (
		config TEXT NOT NULL,
		kind TEXT NOT NULL,
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		source_path TEXT NOT NULL,
		loc_kind TEXT NOT NULL,
		loc_name TEXT NOT NULL,
		loc_chain TEXT,
		fields TEXT,
		PRIMARY KEY (config, kind, ord)
	);
	CREATE TABLE IF NOT EXISTS dg_parents (
		config TEXT NOT NULL,
		name TEXT NOT NULL,
		parent TEXT NOT NULL,
		PRIMARY KEY (config, name)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return db, nil
}

// Save persists a snapshot keyed by (config, fingerprint), replacing any
// previous snapshot for the same configuration. Summaries are not persisted;
// they are recomputed on load.
func Save(db *sql.DB, config string, size, mtime int64, snap *Snapshot, savedAt int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot save: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op if committed

	for _, stmt := range []string{
		"DELETE FROM records WHERE config = ?",
		"DELETE FROM dg_parents WHERE config = ?",
	} {
		if _, err := tx.Exec(stmt, config); err != nil {
			return fmt.Errorf("clear previous snapshot: %w", err)
		}
	}

	recStmt, err := tx.Prepare(`
		INSERT INTO records (config, kind, ord, name, source_path, loc_kind, loc_name, loc_chain, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer func() { _ = recStmt.Close() }()

	for _, kind := range api.Kinds() {
		for ord, rec := range snap.Kind(kind) {
			var chain, fields string
			if len(rec.Location.ParentChain) > 0 {
				chain = oj.JSON(rec.Location.ParentChain)
			}
			if len(rec.Fields) > 0 {
				fields = oj.JSON(rec.Fields)
			}
			if _, err := recStmt.Exec(
				config, kind, ord, rec.Name, rec.SourcePath,
				string(rec.Location.Kind), rec.Location.Name, chain, fields,
			); err != nil {
				return fmt.Errorf("insert record %s/%s: %w", kind, rec.Name, err)
			}
		}
	}

	parentStmt, err := tx.Prepare("INSERT INTO dg_parents (config, name, parent) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare parent insert: %w", err)
	}
	defer func() { _ = parentStmt.Close() }()
	for name, parent := range snap.DeviceGroupParents() {
		if _, err := parentStmt.Exec(config, name, parent); err != nil {
			return fmt.Errorf("insert parent edge %s: %w", name, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshots (config, size, mtime, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(config) DO UPDATE SET size = excluded.size, mtime = excluded.mtime, saved_at = excluded.saved_at
	`, config, size, mtime, savedAt); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return tx.Commit()
}

// Load rebuilds a persisted snapshot if one exists for the exact
// fingerprint. Returns ErrCacheMiss on absence or mismatch; any other error
// means the persisted blob is unreadable and the caller should reparse.
func Load(db *sql.DB, config string, size, mtime int64) (*Snapshot, error) {
	var gotSize, gotMtime int64
	err := db.QueryRow("SELECT size, mtime FROM snapshots WHERE config = ?", config).Scan(&gotSize, &gotMtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read fingerprint: %w", err)
	}
	if gotSize != size || gotMtime != mtime {
		return nil, ErrCacheMiss
	}

	b := NewBuilder()
	rows, err := db.Query(`
		SELECT kind, name, source_path, loc_kind, loc_name, loc_chain, fields
		FROM records WHERE config = ? ORDER BY kind, ord
	`, config)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind, name, sourcePath, locKind, locName string
		var chain, fields sql.NullString
		if err := rows.Scan(&kind, &name, &sourcePath, &locKind, &locName, &chain, &fields); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := api.Record{
			Name:       name,
			Kind:       kind,
			SourcePath: sourcePath,
			Location:   api.Location{Kind: api.LocationKind(locKind), Name: locName},
		}
		if chain.Valid && chain.String != "" {
			parsed, err := oj.ParseString(chain.String)
			if err != nil {
				return nil, fmt.Errorf("parse parent chain for %s: %w", name, err)
			}
			list, ok := parsed.([]any)
			if !ok {
				return nil, fmt.Errorf("corrupt parent chain for %s", name)
			}
			for _, v := range list {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("corrupt parent chain for %s", name)
				}
				rec.Location.ParentChain = append(rec.Location.ParentChain, s)
			}
		}
		if fields.Valid && fields.String != "" {
			parsed, err := oj.ParseString(fields.String)
			if err != nil {
				return nil, fmt.Errorf("parse fields for %s: %w", name, err)
			}
			m, ok := parsed.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("corrupt fields for %s", name)
			}
			rec.Fields = m
		}
		b.Add(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	parents, err := db.Query("SELECT name, parent FROM dg_parents WHERE config = ?", config)
	if err != nil {
		return nil, fmt.Errorf("read parent edges: %w", err)
	}
	defer func() { _ = parents.Close() }()
	for parents.Next() {
		var name, parent string
		if err := parents.Scan(&name, &parent); err != nil {
			return nil, fmt.Errorf("scan parent edge: %w", err)
		}
		b.SetParent(name, parent)
	}
	if err := parents.Err(); err != nil {
		return nil, fmt.Errorf("iterate parent edges: %w", err)
	}

	return b.Seal(), nil
}
