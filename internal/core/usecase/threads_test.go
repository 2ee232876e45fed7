package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

func TestThreadCreateValidatesTitle(t *testing.T) {
	uc := NewThreadUseCase(newConversationStoreFake(), newDocumentRepoFake())

	if _, err := uc.Create(context.Background(), "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	th, err := uc.Create(context.Background(), "  "+strings.Repeat("t", 250)+"  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if utf8.RuneCountInString(th.Title) != MaxTitleRunes {
		t.Fatalf("expected title truncated to %d runes, got %d", MaxTitleRunes, utf8.RuneCountInString(th.Title))
	}
}

func TestThreadListPagination(t *testing.T) {
	store := newConversationStoreFake()
	uc := NewThreadUseCase(store, newDocumentRepoFake())
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := uc.Create(ctx, fmt.Sprintf("thread %d", i)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := uc.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Threads) != DefaultPageLimit {
		t.Fatalf("expected default page of %d, got %d", DefaultPageLimit, len(page.Threads))
	}
	if page.Pagination.Total != 12 || !page.Pagination.HasMore {
		t.Fatalf("unexpected pagination: %#v", page.Pagination)
	}

	last, err := uc.List(ctx, 10, 1000)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if last.Pagination.Limit != MaxPageLimit || last.Pagination.HasMore || len(last.Threads) != 2 {
		t.Fatalf("unexpected last page: %#v", last.Pagination)
	}
}

func TestThreadMessagesResolvesSourceDocuments(t *testing.T) {
	store := newConversationStoreFake()
	docs := newDocumentRepoFake(domain.Document{ID: "doc-1", Filename: "handbook.pdf"})
	uc := NewThreadUseCase(store, docs)
	ctx := context.Background()

	th, _ := store.CreateThread(ctx, "t")
	_ = store.AppendMessage(ctx, &domain.Message{ThreadID: th.ID, Role: domain.RoleUser, Content: "q"})
	_ = store.AppendMessage(ctx, &domain.Message{
		ThreadID: th.ID,
		Role:     domain.RoleAssistant,
		Content:  "a",
		Sources:  []string{"doc-1", "doc-gone", "https://example.com"},
	})

	page, err := uc.Messages(ctx, th.ID, 0, 10)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(page.Messages) != 2 || page.Pagination.Total != 2 {
		t.Fatalf("unexpected page: %#v", page)
	}
	if page.Messages[0].Content != "q" {
		t.Fatalf("expected oldest message first")
	}
	got := page.Messages[1].SourceDocuments
	if len(got) != 1 || got[0] != "handbook.pdf" {
		t.Fatalf("unexpected source documents: %#v", got)
	}
	if len(page.Messages[0].SourceDocuments) != 0 {
		t.Fatalf("expected no source documents on user message")
	}
}

func TestThreadMessagesUnknownThread(t *testing.T) {
	uc := NewThreadUseCase(newConversationStoreFake(), newDocumentRepoFake())

	if _, err := uc.Messages(context.Background(), "missing", 0, 10); !domain.IsKind(err, domain.ErrThreadNotFound) {
		t.Fatalf("expected thread not found, got %v", err)
	}
}

func TestThreadRename(t *testing.T) {
	store := newConversationStoreFake()
	uc := NewThreadUseCase(store, newDocumentRepoFake())
	ctx := context.Background()
	th, _ := store.CreateThread(ctx, "old")

	renamed, err := uc.Rename(ctx, th.ID, "  new title ")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if renamed.Title != "new title" {
		t.Fatalf("unexpected title %q", renamed.Title)
	}
	if _, err := uc.Rename(ctx, "missing", "x"); !domain.IsKind(err, domain.ErrThreadNotFound) {
		t.Fatalf("expected thread not found, got %v", err)
	}
}

func TestThreadDeleteRemovesAllMessages(t *testing.T) {
	store := newConversationStoreFake()
	uc := NewThreadUseCase(store, newDocumentRepoFake())
	ctx := context.Background()
	th, _ := store.CreateThread(ctx, "t")
	for i := 0; i < 12; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_ = store.AppendMessage(ctx, &domain.Message{ThreadID: th.ID, Role: role, Content: fmt.Sprint(i)})
	}

	deleted, err := uc.Delete(ctx, th.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != 12 {
		t.Fatalf("expected 12 deleted messages, got %d", deleted)
	}
	if _, err := uc.Messages(ctx, th.ID, 0, 10); !domain.IsKind(err, domain.ErrThreadNotFound) {
		t.Fatalf("expected thread gone, got %v", err)
	}
	if n, _ := store.CountMessages(ctx, th.ID); n != 0 {
		t.Fatalf("expected no orphan messages, got %d", n)
	}

	if _, err := uc.Delete(ctx, th.ID); !domain.IsKind(err, domain.ErrThreadNotFound) {
		t.Fatalf("expected thread not found on second delete, got %v", err)
	}
}

func TestThreadReconcileMessageCounts(t *testing.T) {
	store := newConversationStoreFake()
	uc := NewThreadUseCase(store, newDocumentRepoFake())
	ctx := context.Background()
	a, _ := store.CreateThread(ctx, "a")
	b, _ := store.CreateThread(ctx, "b")
	_ = store.AppendMessage(ctx, &domain.Message{ThreadID: a.ID, Role: domain.RoleUser, Content: "x"})
	_ = store.SetMessageCount(ctx, b.ID, 0)

	changed, err := uc.ReconcileMessageCounts(ctx)
	if err != nil {
		t.Fatalf("ReconcileMessageCounts() error = %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 thread changed, got %d", changed)
	}
	got, _ := store.GetThread(ctx, a.ID)
	if got.MessageCount != 1 {
		t.Fatalf("expected count 1, got %d", got.MessageCount)
	}
}
