package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	content     TEXT NOT NULL,
	meta        TEXT NOT NULL,
	embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
`

// Index is an embedded vector index for single-node setups. Similarity is a
// brute-force cosine scan over the stored float32 blobs, which is fine for a
// personal corpus of a few thousand chunks.
type Index struct {
	db       *sql.DB
	embedder ports.Embedder
}

// Open opens or creates the database at dsn, e.g. "file:/data/index.db" or
// "file::memory:".
func Open(dsn string, embedder ports.Embedder) (*Index, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	// modernc serializes writers per connection; one connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	ix, err := New(db, embedder)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return ix, nil
}

func New(db *sql.DB, embedder ports.Embedder) (*Index, error) {
	if db == nil {
		return nil, errors.New("sqlitevec: db is nil")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ensure sqlite index schema: %w", err)
	}
	return &Index{db: db, embedder: embedder}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) Add(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, 0, len(records))
	for _, rec := range records {
		texts = append(texts, rec.Text)
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(records), len(vectors))
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, meta, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			meta = excluded.meta,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("prepare chunk upsert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of %s: %w", rec.ID, err)
		}
		docID := rec.Metadata.String(domain.MetaDocumentID)
		if _, err := stmt.ExecContext(ctx, rec.ID, docID, rec.Text, string(meta), encodeEmbedding(vectors[i])); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

func (ix *Index) Query(ctx context.Context, text string, k int, filter domain.SearchFilter) ([]domain.IndexHit, error) {
	if k <= 0 {
		return []domain.IndexHit{}, nil
	}
	query, err := ix.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	q := `SELECT id, content, meta, embedding FROM chunks`
	args := []any{}
	if filter.DocumentID != "" {
		q += ` WHERE document_id = ?`
		args = append(args, filter.DocumentID)
	}
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]domain.IndexHit, 0)
	for rows.Next() {
		var (
			id, content, metaRaw string
			blob                 []byte
		)
		if err := rows.Scan(&id, &content, &metaRaw, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding of %s: %w", id, err)
		}
		if len(vec) != len(query) {
			continue
		}
		var meta domain.Metadata
		if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", id, err)
		}
		hits = append(hits, domain.IndexHit{
			ID:       id,
			Text:     content,
			Metadata: meta,
			Distance: CosineDistance(query, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (ix *Index) DeleteByFilter(ctx context.Context, filter domain.SearchFilter) error {
	if filter.IsEmpty() {
		return domain.WrapError(domain.ErrInvalidInput, "sqlite index delete", errors.New("refusing to delete with an empty filter"))
	}
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, filter.DocumentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// CosineDistance is 1 - cosine similarity, in [0,2]. A zero vector is treated
// as orthogonal to everything.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
