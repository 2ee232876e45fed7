package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/grounded-chat/internal/client"
	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type apiFake struct {
	server   string
	chatReq  client.ChatRequest
	search   client.SearchRequest
	uploaded map[string]string
	deleted  []string
	skip     int
	limit    int
	err      error
}

func (f *apiFake) Chat(_ context.Context, req client.ChatRequest) (*domain.ChatResponse, error) {
	f.chatReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChatResponse{AssistantText: "It is 42.", ThreadID: "t-7", Sources: []string{"guide.pdf"}}, nil
}

func (f *apiFake) Search(_ context.Context, req client.SearchRequest) (*client.SearchResponse, error) {
	f.search = req
	return &client.SearchResponse{Items: []domain.EvidenceItem{{Text: "The answer  is\n42.", Source: "guide.pdf", Score: 0.91}}}, nil
}

func (f *apiFake) Upload(_ context.Context, filename string, body io.Reader) (*domain.Document, error) {
	raw, _ := io.ReadAll(body)
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[filename] = string(raw)
	return &domain.Document{ID: "doc-1", Filename: filename, ChunkCount: 2}, nil
}

func (f *apiFake) ListDocuments(context.Context) ([]domain.Document, error) {
	return []domain.Document{{ID: "doc-1", Filename: "guide.pdf", FileType: domain.FileTypePDF, ChunkCount: 12, UploadedAt: time.Now().Add(-2 * time.Hour)}}, nil
}

func (f *apiFake) DeleteDocument(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *apiFake) ListThreads(_ context.Context, skip, limit int) (*domain.ThreadPage, error) {
	f.skip, f.limit = skip, limit
	return &domain.ThreadPage{
		Threads:    []domain.Thread{{ID: "t-7", Title: "Answers", MessageCount: 4, UpdatedAt: time.Now()}},
		Pagination: domain.Pagination{Total: 3, Skip: skip, Limit: limit, HasMore: true},
	}, nil
}

func (f *apiFake) ThreadMessages(_ context.Context, id string, _, _ int) (*domain.MessagePage, error) {
	return &domain.MessagePage{
		Thread: domain.Thread{ID: id, Title: "Answers"},
		Messages: []domain.MessageView{
			{Message: domain.Message{Role: domain.RoleUser, Content: "what is it?"}},
			{Message: domain.Message{Role: domain.RoleAssistant, Content: "42"}, SourceDocuments: []string{"guide.pdf"}},
		},
	}, nil
}

func (f *apiFake) RenameThread(_ context.Context, id, title string) (*domain.Thread, error) {
	return &domain.Thread{ID: id, Title: title}, nil
}

func (f *apiFake) DeleteThread(context.Context, string) (int, error) { return 4, nil }

func run(t *testing.T, fake *apiFake, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(func(server string) API {
		fake.server = server
		return fake
	})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestAskPrintsAnswerAndSources(t *testing.T) {
	fake := &apiFake{}
	out, err := run(t, fake, "--server", "http://api:8080", "ask", "-w", "-t", "t-7", "what", "is", "it?")

	require.NoError(t, err)
	assert.Equal(t, "http://api:8080", fake.server)
	assert.Equal(t, "what is it?", fake.chatReq.Message)
	assert.True(t, fake.chatReq.EnableWebSearch)
	assert.Equal(t, "t-7", fake.chatReq.ThreadID)
	assert.Contains(t, out, "It is 42.")
	assert.Contains(t, out, "- guide.pdf")
	assert.Contains(t, out, "thread: t-7")
}

func TestAskWebSearchIsOnByDefault(t *testing.T) {
	fake := &apiFake{}
	_, err := run(t, fake, "ask", "hi")
	require.NoError(t, err)
	assert.True(t, fake.chatReq.EnableWebSearch)

	fake = &apiFake{}
	_, err = run(t, fake, "ask", "--web=false", "hi")
	require.NoError(t, err)
	assert.False(t, fake.chatReq.EnableWebSearch)
}

func TestAskRequiresQuestion(t *testing.T) {
	_, err := run(t, &apiFake{}, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestAskSurfacesAPIError(t *testing.T) {
	_, err := run(t, &apiFake{err: &client.APIError{StatusCode: 503, Message: "server is overloaded, retry later"}}, "ask", "hi")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 503, apiErr.StatusCode)
}

func TestSearchOnlySendsChangedFlags(t *testing.T) {
	fake := &apiFake{}
	out, err := run(t, fake, "search", "answer")
	require.NoError(t, err)
	assert.Nil(t, fake.search.MinScore)
	assert.Nil(t, fake.search.MaxChunks)
	assert.Contains(t, out, "The answer is 42.")

	_, err = run(t, fake, "search", "--min-score", "0.7", "-n", "3", "answer")
	require.NoError(t, err)
	require.NotNil(t, fake.search.MinScore)
	assert.InDelta(t, 0.7, *fake.search.MinScore, 1e-9)
	assert.Equal(t, 3, *fake.search.MaxChunks)
}

func TestUploadReadsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0o644))

	fake := &apiFake{}
	out, err := run(t, fake, "upload", path)
	require.NoError(t, err)
	assert.Equal(t, "# Notes", fake.uploaded["notes.md"])
	assert.Contains(t, out, "doc-1  notes.md (7 B, 2 chunks)")
}

func TestDocumentsListAndDelete(t *testing.T) {
	fake := &apiFake{}
	out, err := run(t, fake, "docs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "guide.pdf")
	assert.Contains(t, out, "2 hours ago")

	out, err = run(t, fake, "documents", "delete", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, fake.deleted)
	assert.Contains(t, out, "Deleted doc-1")
}

func TestThreadsCommands(t *testing.T) {
	fake := &apiFake{}
	out, err := run(t, fake, "threads", "list", "--skip", "1", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.skip)
	assert.Equal(t, 1, fake.limit)
	assert.Contains(t, out, "use --skip 2 for more")

	out, err = run(t, fake, "threads", "show", "t-7")
	require.NoError(t, err)
	assert.Contains(t, out, "assistant> 42")
	assert.Contains(t, out, "sources: guide.pdf")

	out, err = run(t, fake, "threads", "rename", "t-7", "Life", "answers")
	require.NoError(t, err)
	assert.Contains(t, out, `Renamed t-7 to "Life answers"`)

	out, err = run(t, fake, "threads", "delete", "t-7")
	require.NoError(t, err)
	assert.Contains(t, out, "(4 messages)")
}
