package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type conversationStoreFake struct {
	mu       sync.Mutex
	seq      int
	threads  map[string]*domain.Thread
	messages map[string][]domain.Message

	appendErr error
}

func newConversationStoreFake() *conversationStoreFake {
	return &conversationStoreFake{
		threads:  make(map[string]*domain.Thread),
		messages: make(map[string][]domain.Message),
	}
}

func (f *conversationStoreFake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *conversationStoreFake) CreateThread(_ context.Context, title string) (*domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Unix(int64(1_700_000_000+f.seq), 0).UTC()
	th := &domain.Thread{ID: f.nextID("thread"), Title: title, CreatedAt: now, UpdatedAt: now}
	f.threads[th.ID] = th
	out := *th
	return &out, nil
}

func (f *conversationStoreFake) GetThread(_ context.Context, id string) (*domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrThreadNotFound, "get thread", fmt.Errorf("id %s", id))
	}
	out := *th
	return &out, nil
}

func (f *conversationStoreFake) UpdateThreadTitle(ctx context.Context, id, title string) (*domain.Thread, error) {
	f.mu.Lock()
	th, ok := f.threads[id]
	if ok {
		th.Title = title
	}
	f.mu.Unlock()
	return f.GetThread(ctx, id)
}

func (f *conversationStoreFake) DeleteThread(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[id]; !ok {
		return 0, domain.WrapError(domain.ErrThreadNotFound, "delete thread", fmt.Errorf("id %s", id))
	}
	n := len(f.messages[id])
	delete(f.threads, id)
	delete(f.messages, id)
	return n, nil
}

func (f *conversationStoreFake) ListThreads(_ context.Context, skip, limit int) ([]domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]domain.Thread, 0, len(f.threads))
	for _, th := range f.threads {
		all = append(all, *th)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	if skip >= len(all) {
		return []domain.Thread{}, nil
	}
	end := min(skip+limit, len(all))
	return all[skip:end], nil
}

func (f *conversationStoreFake) CountThreads(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.threads), nil
}

func (f *conversationStoreFake) AppendMessage(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	if _, ok := f.threads[msg.ThreadID]; !ok {
		return domain.WrapError(domain.ErrThreadNotFound, "append message", fmt.Errorf("id %s", msg.ThreadID))
	}
	msg.ID = f.nextID("msg")
	msg.CreatedAt = time.Unix(int64(1_700_000_000+f.seq), 0).UTC()
	f.messages[msg.ThreadID] = append(f.messages[msg.ThreadID], *msg)
	return nil
}

func (f *conversationStoreFake) CountMessages(_ context.Context, threadID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[threadID]), nil
}

func (f *conversationStoreFake) ListMessages(_ context.Context, threadID string, skip, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.messages[threadID]
	if skip >= len(all) {
		return []domain.Message{}, nil
	}
	end := min(skip+limit, len(all))
	return append([]domain.Message(nil), all[skip:end]...), nil
}

func (f *conversationStoreFake) ListRecentMessages(_ context.Context, threadID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.messages[threadID]
	out := make([]domain.Message, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (f *conversationStoreFake) SetMessageCount(_ context.Context, threadID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[threadID]
	if !ok {
		return domain.WrapError(domain.ErrThreadNotFound, "set message count", fmt.Errorf("id %s", threadID))
	}
	th.MessageCount = count
	return nil
}

func (f *conversationStoreFake) ReconcileMessageCounts(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := 0
	for id, th := range f.threads {
		if n := len(f.messages[id]); th.MessageCount != n {
			th.MessageCount = n
			changed++
		}
	}
	return changed, nil
}

type documentRepoFake struct {
	mu        sync.Mutex
	docs      map[string]domain.Document
	createErr error
	created   int
	deleted   []string
}

func newDocumentRepoFake(docs ...domain.Document) *documentRepoFake {
	f := &documentRepoFake{docs: make(map[string]domain.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *documentRepoFake) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = *doc
	f.created++
	return nil
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	return &d, nil
}

func (f *documentRepoFake) List(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func (f *documentRepoFake) FindByFilenames(_ context.Context, filenames []string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0)
	for _, name := range filenames {
		for _, d := range f.docs {
			if d.Filename == name {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (f *documentRepoFake) FindByIDs(_ context.Context, ids []string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0)
	for _, id := range ids {
		if d, ok := f.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *documentRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type vectorIndexFake struct {
	mu        sync.Mutex
	hits      []domain.IndexHit
	queryErr  error
	addErr    error
	added     []domain.IndexRecord
	purged    []domain.SearchFilter
	lastK     int
	lastQuery string
	lastScope domain.SearchFilter
}

func (f *vectorIndexFake) Add(_ context.Context, records []domain.IndexRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, records...)
	return nil
}

func (f *vectorIndexFake) Query(_ context.Context, text string, k int, filter domain.SearchFilter) ([]domain.IndexHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastK, f.lastQuery, f.lastScope = k, text, filter
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make([]domain.IndexHit, 0, len(f.hits))
	for _, h := range f.hits {
		if filter.DocumentID != "" && h.Metadata.String(domain.MetaDocumentID) != filter.DocumentID {
			continue
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (f *vectorIndexFake) DeleteByFilter(_ context.Context, filter domain.SearchFilter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, filter)
	return nil
}

func hit(docID, filename string, chunk int, distance float64, text string) domain.IndexHit {
	return domain.IndexHit{
		ID:   ChunkID(docID, chunk),
		Text: text,
		Metadata: domain.Metadata{
			domain.MetaDocumentID: domain.StringValue(docID),
			domain.MetaChunkIndex: domain.IntValue(chunk),
			domain.MetaFilename:   domain.StringValue(filename),
			domain.MetaFileType:   domain.StringValue("txt"),
		},
		Distance: distance,
	}
}

type webSearcherFake struct {
	resp  *domain.WebSearchResponse
	err   error
	calls int
	mu    sync.Mutex
}

func (f *webSearcherFake) Search(context.Context, string, int) (*domain.WebSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type chatModelFake struct {
	answer   string
	err      error
	received []domain.ChatMessage
}

func (f *chatModelFake) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.received = append([]domain.ChatMessage(nil), messages...)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string]string)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// storageExtractorFake reads the stored bytes back as text.
type storageExtractorFake struct {
	storage *storageFake
}

func (f storageExtractorFake) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	rc, err := f.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	return string(raw), err
}

type lineChunkerFake struct{}

func (lineChunkerFake) Split(text string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

type jobQueueFake struct {
	published  []string
	publishErr error
}

func (f *jobQueueFake) PublishDocumentPurge(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *jobQueueFake) SubscribeDocumentPurge(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}
