package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

func TestNewWithoutKeyIsConfigurationMissing(t *testing.T) {
	if _, err := New("", "", Options{}); !domain.IsKind(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
}

func TestSearchRequestsAnswerAndCleansSnippets(t *testing.T) {
	var got searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"answer": "Go 1.25 is the latest release.",
			"results": [
				{"url": "https://go.dev/doc/go1.25", "title": "Go 1.25 <b>Release</b> Notes", "content": "<p>Go 1.25 &amp; friends</p><script>x()</script>", "score": 0.87}
			]
		}`))
	}))
	defer server.Close()

	client, err := New(server.URL, "tvly-key", Options{RequestsPerSecond: 100})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	resp, err := client.Search(context.Background(), "latest go", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got.APIKey != "tvly-key" || got.MaxResults != 3 || !got.IncludeAnswer || got.IncludeRawContent {
		t.Fatalf("unexpected request: %+v", got)
	}
	if resp.Answer != "Go 1.25 is the latest release." || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	r := resp.Results[0]
	if r.Title != "Go 1.25 Release Notes" || r.Content != "Go 1.25 & friends" || r.Score != 0.87 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestSearchServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream", http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := New(server.URL, "k", Options{})
	_, err := client.Search(context.Background(), "q", 3)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"plain   text\n here":    "plain text here",
		"<div>a<br/>b</div>":     "a b",
		"x <style>.c{}</style>y": "x y",
		"Tom &amp; Jerry":        "Tom & Jerry",
		"":                       "",
	}
	for in, want := range cases {
		if got := PlainText(in); got != want {
			t.Fatalf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}
