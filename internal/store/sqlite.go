package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/jtao/recall/internal/embedding"
	"github.com/jtao/recall/internal/memerr"
	"github.com/jtao/recall/internal/model"
)

// SQLiteStore implements Store using SQLite. Mutations are serialized
// through writeMu (single-writer discipline); reads run concurrently
// under WAL and never observe a partially-written row.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand

	writeMu sync.Mutex
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		memory_type   TEXT NOT NULL DEFAULT 'note',
		title         TEXT,
		content       TEXT NOT NULL,
		metadata      TEXT,
		created_at    TEXT NOT NULL,
		importance    REAL NOT NULL DEFAULT 0.5,
		access_count  INTEGER NOT NULL DEFAULT 0,
		last_accessed TEXT,
		source_type   TEXT,
		source_id     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_source ON memories(source_type, source_id);

	CREATE TABLE IF NOT EXISTS embeddings (
		memory_id     TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
		vector        BLOB NOT NULL,
		dims          INTEGER NOT NULL,
		model_version TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		title,
		content,
		content=memories,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Triggers keep the lexical index in the same transaction as every
	// row mutation; readers never see one without the other.
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE OF title, content ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
		INSERT INTO memories_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
	END`)

	// Resync the index when it has drifted from the content table, e.g.
	// rows written under an older schema without the triggers.
	var memN, ftsN int
	s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&memN)
	s.db.QueryRow(`SELECT COUNT(*) FROM memories_fts`).Scan(&ftsN)
	if memN != ftsN {
		s.db.Exec(`INSERT INTO memories_fts(memories_fts) VALUES('rebuild')`)
	}

	return nil
}

// Create assigns an id and timestamp and writes the row. The FTS trigger
// fires inside the same transaction, and so does the embedding insert
// when a vector is supplied.
func (s *SQLiteStore) Create(ctx context.Context, p CreateParams) (*model.Memory, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, memerr.Validationf("content is empty")
	}

	now := time.Now().UTC()
	id := s.newID()

	memType := model.NormalizeType(p.Type)
	importance := model.DefaultImportance
	if p.Importance != nil {
		importance = *p.Importance
	}
	if importance < 0 || importance > 1 {
		return nil, memerr.Validationf("importance %.3f outside [0,1]", importance)
	}

	var metaJSON *string
	if len(p.Metadata) > 0 {
		b, _ := json.Marshal(p.Metadata)
		str := string(b)
		metaJSON = &str
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memories (id, memory_type, title, content, metadata, created_at, importance, access_count, source_type, source_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, memType, nullable(p.Title), p.Content, metaJSON,
		now.Format(time.RFC3339), importance, nullable(p.SourceType), nullable(p.SourceID))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	if p.Vector != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO embeddings (memory_id, vector, dims, model_version, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, embedding.EncodeVector(p.Vector), len(p.Vector), p.ModelVersion, now.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Memory{
		ID:         id,
		Type:       memType,
		Title:      p.Title,
		Content:    p.Content,
		Metadata:   p.Metadata,
		CreatedAt:  now,
		Importance: importance,
		SourceType: p.SourceType,
		SourceID:   p.SourceID,
	}, nil
}

const memoryColumns = `id, memory_type, title, content, metadata, created_at, importance, access_count, last_accessed, source_type, source_id`

// Get retrieves a memory by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, memerr.NotFoundf("memory %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes a memory, its embedding, and its lexical index entry in
// one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return memerr.NotFoundf("memory %s", id)
	}
	return tx.Commit()
}

// UpdateAccess bumps access_count and last_accessed. A missing id is
// logged, not fatal: the memory may have been deleted between search and
// accounting.
func (s *SQLiteStore) UpdateAccess(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Printf("[STORE] access update for unknown memory %s", id)
	}
	return nil
}

// UpdateImportance sets the importance score for a memory.
func (s *SQLiteStore) UpdateImportance(ctx context.Context, id string, score float64) error {
	if score < 0 || score > 1 {
		return memerr.Validationf("importance %.3f outside [0,1]", score)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE memories SET importance = ? WHERE id = ?`, score, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return memerr.NotFoundf("memory %s", id)
	}
	return nil
}

// ListRecent returns the newest memories, optionally filtered by source type.
func (s *SQLiteStore) ListRecent(ctx context.Context, sourceType string, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + memoryColumns + ` FROM memories`
	args := []interface{}{}
	if sourceType != "" {
		query += ` WHERE source_type = ?`
		args = append(args, sourceType)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// ExistsBySource reports whether a memory with this source id and exact
// content already exists. Consolidation uses it to keep re-runs idempotent.
func (s *SQLiteStore) ExistsBySource(ctx context.Context, sourceID, content string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE source_id = ? AND content = ?`, sourceID, content).Scan(&n)
	return n > 0, err
}

func (s *SQLiteStore) existsByTitleContent(ctx context.Context, title, content string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE COALESCE(title, '') = ? AND content = ?`, title, content).Scan(&n)
	return n > 0, err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var title, metaJSON, lastAccessed, sourceType, sourceID sql.NullString
	var createdAt string

	err := row.Scan(
		&m.ID, &m.Type, &title, &m.Content, &metaJSON, &createdAt,
		&m.Importance, &m.AccessCount, &lastAccessed, &sourceType, &sourceID,
	)
	if err != nil {
		return m, err
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if title.Valid {
		m.Title = title.String
	}
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(time.RFC3339, lastAccessed.String)
		m.LastAccess = &t
	}
	if sourceType.Valid {
		m.SourceType = sourceType.String
	}
	if sourceID.Valid {
		m.SourceID = sourceID.String
	}

	return m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
