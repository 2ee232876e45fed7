package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	MaxTitleRunes    = 200
)

type ThreadUseCase struct {
	store ports.ConversationStore
	docs  ports.DocumentRepository
}

func NewThreadUseCase(store ports.ConversationStore, docs ports.DocumentRepository) *ThreadUseCase {
	return &ThreadUseCase{store: store, docs: docs}
}

func (uc *ThreadUseCase) Create(ctx context.Context, title string) (*domain.Thread, error) {
	normalized, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	return uc.store.CreateThread(ctx, normalized)
}

func (uc *ThreadUseCase) List(ctx context.Context, skip, limit int) (*domain.ThreadPage, error) {
	skip, limit = normalizePage(skip, limit)

	total, err := uc.store.CountThreads(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := uc.store.ListThreads(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []domain.Thread{}
	}
	return &domain.ThreadPage{
		Threads:    threads,
		Pagination: domain.NewPagination(total, skip, limit),
	}, nil
}

// Messages returns a page of messages oldest first with source document ids
// resolved to filenames. Sources that are not document ids (web URLs, or
// documents deleted since) are skipped.
func (uc *ThreadUseCase) Messages(ctx context.Context, threadID string, skip, limit int) (*domain.MessagePage, error) {
	skip, limit = normalizePage(skip, limit)

	thread, err := uc.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	total, err := uc.store.CountMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	messages, err := uc.store.ListMessages(ctx, threadID, skip, limit)
	if err != nil {
		return nil, err
	}

	docsByID, err := uc.sourceDocuments(ctx, messages)
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, 0, len(messages))
	for _, msg := range messages {
		view := domain.MessageView{Message: msg, SourceDocuments: []string{}}
		for _, src := range msg.Sources {
			if doc, ok := docsByID[src]; ok {
				view.SourceDocuments = append(view.SourceDocuments, doc.Filename)
			}
		}
		views = append(views, view)
	}

	return &domain.MessagePage{
		Thread:     *thread,
		Messages:   views,
		Pagination: domain.NewPagination(total, skip, limit),
	}, nil
}

func (uc *ThreadUseCase) Rename(ctx context.Context, threadID, title string) (*domain.Thread, error) {
	normalized, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	return uc.store.UpdateThreadTitle(ctx, threadID, normalized)
}

// Delete removes the thread and all its messages, returning how many messages
// went with it.
func (uc *ThreadUseCase) Delete(ctx context.Context, threadID string) (int, error) {
	if _, err := uc.store.GetThread(ctx, threadID); err != nil {
		return 0, err
	}
	return uc.store.DeleteThread(ctx, threadID)
}

// ReconcileMessageCounts rewrites every thread's cached count from its actual
// message rows and reports how many threads changed.
func (uc *ThreadUseCase) ReconcileMessageCounts(ctx context.Context) (int, error) {
	return uc.store.ReconcileMessageCounts(ctx)
}

func (uc *ThreadUseCase) sourceDocuments(ctx context.Context, messages []domain.Message) (map[string]domain.Document, error) {
	ids := make([]string, 0)
	for _, msg := range messages {
		for _, src := range msg.Sources {
			if src == "" || strings.Contains(src, "://") {
				continue
			}
			ids = append(ids, src)
		}
	}
	out := make(map[string]domain.Document)
	ids = uniqueNonEmpty(ids)
	if len(ids) == 0 || uc.docs == nil {
		return out, nil
	}

	docs, err := uc.docs.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[doc.ID] = doc
	}
	return out, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "thread title", errors.New("title is required"))
	}
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		title = string([]rune(title)[:MaxTitleRunes])
	}
	return title, nil
}

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return skip, limit
}
