// Package cli implements gchatctl, the command line client for the
// grounded-chat API.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/grounded-chat/internal/client"
	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/resilience"
)

const defaultServer = "http://localhost:8080"

// API is the subset of client.Client the commands use.
type API interface {
	Chat(ctx context.Context, req client.ChatRequest) (*domain.ChatResponse, error)
	Search(ctx context.Context, req client.SearchRequest) (*client.SearchResponse, error)
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListThreads(ctx context.Context, skip, limit int) (*domain.ThreadPage, error)
	ThreadMessages(ctx context.Context, id string, skip, limit int) (*domain.MessagePage, error)
	RenameThread(ctx context.Context, id, title string) (*domain.Thread, error)
	DeleteThread(ctx context.Context, id string) (int, error)
}

// NewRootCommand builds gchatctl. newAPI is called lazily so --server and
// GCHAT_SERVER are honoured; tests pass a constructor returning a fake.
func NewRootCommand(newAPI func(server string) API) *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:           "gchatctl",
		Short:         "Chat with your documents from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&server, "server", "s", envOr("GCHAT_SERVER", defaultServer), "API base URL")

	api := func() API { return newAPI(server) }

	root.AddCommand(
		newAskCommand(api),
		newSearchCommand(api),
		newUploadCommand(api),
		newDocumentsCommand(api),
		newThreadsCommand(api),
	)
	return root
}

// NewHTTPAPI returns the production API client. Idempotent calls get one retry
// on 408/429/5xx.
func NewHTTPAPI(server string) API {
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 500 * time.Millisecond,
	})
	return client.New(server, client.Options{ResilienceExecutor: exec})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
