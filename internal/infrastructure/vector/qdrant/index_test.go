package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type embedderFake struct{}

func (embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i) + 0.1, 0.2}
	}
	return out, nil
}

func (embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func record(id string, chunk int) domain.IndexRecord {
	return domain.IndexRecord{
		ID:   id,
		Text: "text " + id,
		Metadata: domain.Metadata{
			domain.MetaDocumentID: domain.StringValue("doc-1"),
			domain.MetaChunkIndex: domain.IntValue(chunk),
			domain.MetaFilename:   domain.StringValue("a.txt"),
		},
	}
}

func TestAddEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var upserted struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			_ = json.NewDecoder(r.Body).Decode(&upserted)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	index := New(server.URL, "docs", embedderFake{}, Options{})
	records := []domain.IndexRecord{record("doc-1_chunk_0", 0), record("doc-1_chunk_1", 1)}

	if err := index.Add(context.Background(), records); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	if err := index.Add(context.Background(), records); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(upserted.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(upserted.Points))
	}
	p := upserted.Points[1]
	if p.ID != PointID("doc-1_chunk_1") {
		t.Fatalf("expected derived point id, got %s", p.ID)
	}
	if p.Payload["chunk_id"] != "doc-1_chunk_1" || p.Payload["documentId"] != "doc-1" || p.Payload["chunkIndex"] != float64(1) {
		t.Fatalf("unexpected payload: %#v", p.Payload)
	}
}

func TestPointIDIsStable(t *testing.T) {
	if PointID("x_chunk_0") != PointID("x_chunk_0") {
		t.Fatalf("point id must be deterministic")
	}
	if PointID("x_chunk_0") == PointID("x_chunk_1") {
		t.Fatalf("distinct chunks must get distinct ids")
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	index := New(server.URL, "docs", embedderFake{}, Options{})
	err := index.Add(context.Background(), []domain.IndexRecord{record("c0", 0)})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 500 to be temporary, got %v", err)
	}
}

func TestQueryConvertsScoresAndSendsFilter(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.8,"payload":{"text":"hello","chunk_id":"doc-1_chunk_0","documentId":"doc-1","chunkIndex":0,"filename":"a.txt"}}
		]}`))
	}))
	defer server.Close()

	index := New(server.URL, "docs", embedderFake{}, Options{})
	hits, err := index.Query(context.Background(), "hello", 5, domain.SearchFilter{DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.ID != "doc-1_chunk_0" || h.Text != "hello" || h.Metadata.String(domain.MetaFilename) != "a.txt" {
		t.Fatalf("unexpected hit: %#v", h)
	}
	if d := h.Distance; d < 0.199 || d > 0.201 {
		t.Fatalf("expected distance 0.2, got %v", d)
	}
	if _, ok := h.Metadata["text"]; ok {
		t.Fatalf("text must not leak into metadata")
	}

	filter, _ := got["filter"].(map[string]any)
	must, _ := filter["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("expected one filter clause, got %#v", got["filter"])
	}
	if got["limit"] != float64(5) {
		t.Fatalf("expected limit 5, got %v", got["limit"])
	}
}

func TestQueryMissingCollectionIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"Not found: Collection docs doesn't exist!"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	index := New(server.URL, "docs", embedderFake{}, Options{})
	hits, err := index.Query(context.Background(), "q", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestDeleteByFilter(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/docs/points/delete" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	index := New(server.URL, "docs", embedderFake{}, Options{})
	if err := index.DeleteByFilter(context.Background(), domain.SearchFilter{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty filter rejected, got %v", err)
	}
	if err := index.DeleteByFilter(context.Background(), domain.SearchFilter{DocumentID: "doc-1"}); err != nil {
		t.Fatalf("DeleteByFilter() error = %v", err)
	}
	if _, ok := body["filter"]; !ok {
		t.Fatalf("expected filter in delete body, got %#v", body)
	}
}
