// Package sqlite keeps the vector index in a single SQLite file inside the
// persistence directory and scores it by brute-force cosine similarity.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"tamil-assistant/internal/domain"
	"tamil-assistant/internal/vectorstore"
)

// FileName is the index file created inside the persistence directory.
const FileName = "index.sqlite3"

var (
	_ vectorstore.Storage    = (*Storage)(nil)
	_ vectorstore.FileBacked = (*Storage)(nil)
)

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE chunks (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	text        TEXT NOT NULL,
	source      TEXT NOT NULL,
	source_path TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	language    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	vector      BLOB NOT NULL
);`

// Storage is a file-backed vector index.
type Storage struct {
	dir       string
	path      string
	db        *sql.DB
	dimension int
}

// NewStorage returns a store rooted at dir. Nothing is opened until Open or Reset.
func NewStorage(dir string) *Storage {
	return &Storage{dir: dir, path: filepath.Join(dir, FileName)}
}

// IndexFile returns the database file path.
func (s *Storage) IndexFile() string { return s.path }

func (s *Storage) connect() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	return nil
}

func (s *Storage) Open(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrIndexMissing
		}
		return err
	}
	if err := s.connect(); err != nil {
		return err
	}
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'dimension'").Scan(&value)
	if err != nil {
		return fmt.Errorf("reading index dimension: %w", err)
	}
	dim, err := strconv.Atoi(value)
	if err != nil || dim <= 0 {
		return fmt.Errorf("invalid index dimension %q", value)
	}
	s.dimension = dim
	return nil
}

func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := s.connect(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DROP TABLE IF EXISTS chunks", "DROP TABLE IF EXISTS meta", schema} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("resetting schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO meta(key, value) VALUES ('dimension', ?)", strconv.Itoa(dimension)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if s.db == nil {
		return domain.ErrIndexMissing
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, text, source, source_path, chunk_index, total, language, created_at, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			source = excluded.source,
			source_path = excluded.source_path,
			chunk_index = excluded.chunk_index,
			total = excluded.total,
			language = excluded.language,
			created_at = excluded.created_at,
			vector = excluded.vector`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range chunks {
		_, err := stmt.ExecContext(ctx, c.ID, c.Text, c.Source, c.SourcePath, c.Index, c.Total,
			c.Language, c.CreatedAt.UTC().Format(time.RFC3339Nano), encodeVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	if s.db == nil {
		return nil, domain.ErrIndexMissing
	}
	if topK <= 0 {
		topK = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, source, source_path, chunk_index, total, language, created_at, vector
		FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("scanning index: %w", err)
	}
	defer rows.Close()

	var (
		chunks []domain.Chunk
		scores []float64
	)
	for rows.Next() {
		var (
			c       domain.Chunk
			created string
			blob    []byte
		)
		if err := rows.Scan(&c.ID, &c.Text, &c.Source, &c.SourcePath, &c.Index, &c.Total, &c.Language, &created, &blob); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		chunks = append(chunks, c)
		scores = append(scores, vectorstore.Dot(decodeVector(blob), vector))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	idxs := vectorstore.TopK(scores, topK)
	results := make([]domain.ScoredChunk, 0, len(idxs))
	for _, j := range idxs {
		results = append(results, domain.ScoredChunk{Chunk: chunks[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, domain.ErrIndexMissing
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Drop closes the database and removes its files.
func (s *Storage) Drop(context.Context) error {
	if err := s.Close(); err != nil {
		return err
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.dimension = 0
	return err
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
