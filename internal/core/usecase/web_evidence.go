package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

const DefaultWebMaxResults = 3

// WebEvidence wraps a web searcher into the evidence bundle shape. A nil
// searcher means web search is not configured.
type WebEvidence struct {
	searcher   ports.WebSearcher
	maxResults int
}

func NewWebEvidence(searcher ports.WebSearcher, maxResults int) *WebEvidence {
	if maxResults <= 0 {
		maxResults = DefaultWebMaxResults
	}
	return &WebEvidence{
		searcher:   searcher,
		maxResults: maxResults,
	}
}

func (w *WebEvidence) Search(ctx context.Context, query string, maxResults int) domain.EvidenceBundle {
	if maxResults <= 0 {
		maxResults = w.maxResults
	}
	if w.searcher == nil {
		return domain.FailedEvidence("", domain.WrapError(
			domain.ErrWebSearchDegraded,
			"web search",
			domain.ErrConfigurationMissing,
		))
	}

	resp, err := w.searcher.Search(ctx, query, maxResults)
	if err != nil {
		content := msgWebSearchFailed
		if errors.Is(err, domain.ErrConfigurationMissing) {
			content = ""
		}
		return domain.FailedEvidence(content, domain.WrapError(domain.ErrWebSearchDegraded, "web search", err))
	}
	if resp == nil || len(resp.Results) == 0 {
		return domain.EmptyEvidence(msgNoWebResults)
	}

	items := make([]domain.EvidenceItem, 0, len(resp.Results))
	urls := make([]string, 0, len(resp.Results))
	for i, result := range resp.Results {
		items = append(items, domain.EvidenceItem{
			Text:   result.Content,
			Source: result.URL,
			Title:  result.Title,
			Score:  webScore(result.Score, i, len(resp.Results)),
		})
		urls = append(urls, result.URL)
	}

	return domain.EvidenceBundle{
		Items:   items,
		Context: formatWebContext(resp.Results, resp.Answer),
		Sources: uniqueNonEmpty(urls),
		Status:  domain.EvidenceFound,
	}
}

// webScore keeps provider scores in [0,1] and falls back to rank position when
// the provider does not score results.
func webScore(score float64, rank, total int) float64 {
	if score > 0 && !math.IsNaN(score) {
		return math.Min(1, score)
	}
	return 1 - float64(rank)/float64(total)
}
