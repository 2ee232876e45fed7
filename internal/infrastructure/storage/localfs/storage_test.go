package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

func TestSaveOpenDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "doc.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(ctx, "doc.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(raw) != "hello" {
		t.Fatalf("unexpected content %q", raw)
	}

	if err := s.Delete(ctx, "doc.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "doc.txt"); err != nil {
		t.Fatalf("second Delete() must be a no-op, got %v", err)
	}
	if _, err := s.Open(ctx, "doc.txt"); err == nil {
		t.Fatalf("expected open error after delete")
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b.txt", ".."} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}
