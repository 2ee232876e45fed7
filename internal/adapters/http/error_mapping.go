package httpadapter

import (
	"net/http"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/resilience"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrIngestionEmpty),
		domain.IsKind(err, domain.ErrIngestionNoChunks):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrThreadNotFound),
		domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrModelInvocation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
