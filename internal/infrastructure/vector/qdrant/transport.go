package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kirillkom/grounded-chat/internal/infrastructure/resilience"
)

func (ix *Index) call(ctx context.Context, operation, method, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	_, err = resilience.Do(ctx, ix.executor, resilience.QdrantOp(operation), func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, ix.do(callCtx, operation, method, path, body, out)
	}, classifyQdrantError)
	return resilience.WrapTemporary("qdrant "+operation, err, classifyQdrantError)
}

func (ix *Index) do(ctx context.Context, operation, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, ix.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ix.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// classifyQdrantError treats 404 and 409 as expected answers that must not
// count against the breaker.
func classifyQdrantError(err error) resilience.ErrorClassification {
	if isNotFound(err) || isConflict(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ClassifyHTTP(err)
}

func isConflict(err error) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict
}
