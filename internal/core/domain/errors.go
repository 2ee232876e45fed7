package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrThreadNotFound       = errors.New("thread not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrIngestionEmpty       = errors.New("document is empty or could not be parsed")
	ErrIngestionNoChunks    = errors.New("no chunks created from document")
	ErrRetrievalDegraded    = errors.New("retrieval degraded")
	ErrWebSearchDegraded    = errors.New("web search degraded")
	ErrModelInvocation      = errors.New("model invocation failed")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
