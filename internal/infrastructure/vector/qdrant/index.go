package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/resilience"
)

const (
	payloadText    = "text"
	payloadChunkID = "chunk_id"
)

// chunkNamespace derives stable point UUIDs from chunk ids, since Qdrant only
// accepts integers or UUIDs as point ids.
var chunkNamespace = uuid.MustParse("6f1c3a52-94f1-4c53-9b43-7d7b0e1f2a10")

type Options struct {
	ResilienceExecutor *resilience.Executor
	Timeout            time.Duration
}

// Index stores chunk embeddings in one Qdrant collection using cosine distance.
type Index struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, embedder ports.Embedder, opts Options) *Index {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Index{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
	}
}

// PointID is the Qdrant point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkID)).String()
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

	if err := ix.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	points := make([]point, 0, len(records))
	for i, rec := range records {
		payload := rec.Metadata.Map()
		payload[payloadText] = rec.Text
		payload[payloadChunkID] = rec.ID
		points = append(points, point{
			ID:      PointID(rec.ID),
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", ix.collection)
	return ix.call(ctx, "upsert", http.MethodPut, path, map[string]any{"points": points}, nil)
}

func (ix *Index) Query(ctx context.Context, text string, k int, filter domain.SearchFilter) ([]domain.IndexHit, error) {
	if k <= 0 {
		return []domain.IndexHit{}, nil
	}
	vector, err := ix.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		reqBody["filter"] = f
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", ix.collection)
	if err := ix.call(ctx, "search", http.MethodPost, path, reqBody, &searchResp); err != nil {
		if isNotFound(err) {
			return []domain.IndexHit{}, nil
		}
		return nil, err
	}

	out := make([]domain.IndexHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		hit, err := hitFromPayload(r.Payload, r.Score)
		if err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	return out, nil
}

func (ix *Index) DeleteByFilter(ctx context.Context, filter domain.SearchFilter) error {
	f := buildFilter(filter)
	if f == nil {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant delete", errors.New("refusing to delete with an empty filter"))
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", ix.collection)
	err := ix.call(ctx, "delete", http.MethodPost, path, map[string]any{"filter": f}, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

func (ix *Index) ensureCollection(ctx context.Context, vectorSize int) error {
	ix.ensureMu.Lock()
	if ix.ensuredCollection && ix.ensuredVectorSize == vectorSize {
		ix.ensureMu.Unlock()
		return nil
	}
	ix.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := ix.call(ctx, "ensure_collection", http.MethodPut, "/collections/"+ix.collection, reqBody, nil)
	var statusErr *resilience.HTTPStatusError
	// 409 when the collection already exists.
	if err != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict) {
		return err
	}

	ix.ensureMu.Lock()
	defer ix.ensureMu.Unlock()
	ix.ensuredCollection = true
	ix.ensuredVectorSize = vectorSize
	return nil
}

func buildFilter(filter domain.SearchFilter) map[string]any {
	meta := filter.Metadata()
	if len(meta) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(meta))
	for key, value := range meta {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value.Any()},
		})
	}
	return map[string]any{"must": must}
}

// hitFromPayload converts Qdrant's cosine similarity back to cosine distance.
func hitFromPayload(payload map[string]any, score float64) (domain.IndexHit, error) {
	text, _ := payload[payloadText].(string)
	chunkID, _ := payload[payloadChunkID].(string)

	raw := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == payloadText || k == payloadChunkID {
			continue
		}
		raw[k] = v
	}
	meta, err := domain.MetadataFromMap(raw)
	if err != nil {
		return domain.IndexHit{}, fmt.Errorf("decode payload of %s: %w", chunkID, err)
	}
	return domain.IndexHit{
		ID:       chunkID,
		Text:     text,
		Metadata: meta,
		Distance: 1 - score,
	}, nil
}

func isNotFound(err error) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
