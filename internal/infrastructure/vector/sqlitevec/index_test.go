package sqlitevec

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

// keywordEmbedder maps text onto three axes so distances are predictable.
type keywordEmbedder struct{}

func (keywordEmbedder) vector(text string) []float32 {
	v := []float32{0, 0, 0}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "cat") {
		v[0] = 1
	}
	if strings.Contains(lower, "dog") {
		v[1] = 1
	}
	if strings.Contains(lower, "fish") {
		v[2] = 1
	}
	return v
}

func (e keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, e.vector(t))
	}
	return out, nil
}

func (e keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open("file::memory:", keywordEmbedder{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func rec(docID string, i int, text string) domain.IndexRecord {
	return domain.IndexRecord{
		ID:   docID + "_chunk_" + string(rune('0'+i)),
		Text: text,
		Metadata: domain.Metadata{
			domain.MetaDocumentID: domain.StringValue(docID),
			domain.MetaChunkIndex: domain.IntValue(i),
			domain.MetaFilename:   domain.StringValue(docID + ".txt"),
		},
	}
}

func TestQueryRanksByCosineDistance(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []domain.IndexRecord{
		rec("pets", 0, "the cat sleeps"),
		rec("pets", 1, "the dog and the cat"),
		rec("pets", 2, "fish tank"),
	}))

	hits, err := ix.Query(ctx, "cat", 2, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "pets_chunk_0", hits[0].ID)
	require.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	require.Equal(t, "pets_chunk_1", hits[1].ID)
	require.InDelta(t, 1-1/1.4142135623730951, hits[1].Distance, 1e-6)

	idx, ok := hits[0].Metadata.Int(domain.MetaChunkIndex)
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, "pets.txt", hits[0].Metadata.String(domain.MetaFilename))
}

func TestQueryHonoursDocumentFilter(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []domain.IndexRecord{
		rec("a", 0, "cat facts"),
		rec("b", 0, "cat pictures"),
	}))

	hits, err := ix.Query(ctx, "cat", 5, domain.SearchFilter{DocumentID: "b"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "b", hits[0].Metadata.String(domain.MetaDocumentID))
}

func TestAddUpsertsById(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []domain.IndexRecord{rec("a", 0, "cat")}))
	require.NoError(t, ix.Add(ctx, []domain.IndexRecord{rec("a", 0, "dog")}))

	hits, err := ix.Query(ctx, "dog", 5, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "dog", hits[0].Text)
}

func TestDeleteByFilter(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []domain.IndexRecord{
		rec("a", 0, "cat"),
		rec("a", 1, "dog"),
		rec("b", 0, "fish"),
	}))

	err := ix.DeleteByFilter(ctx, domain.SearchFilter{})
	require.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	require.NoError(t, ix.DeleteByFilter(ctx, domain.SearchFilter{DocumentID: "a"}))
	hits, err := ix.Query(ctx, "cat dog fish", 10, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "b_chunk_0", hits[0].ID)

	require.NoError(t, ix.DeleteByFilter(ctx, domain.SearchFilter{DocumentID: "a"}))
}

func TestCosineDistance(t *testing.T) {
	require.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	require.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	require.InDelta(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-9)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := decodeEmbedding(encodeEmbedding(in))
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	require.Error(t, err)
}
