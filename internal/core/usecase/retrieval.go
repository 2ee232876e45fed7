package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

const (
	DefaultTopK               = 5
	DefaultRelevanceFloor     = 0.30
	DefaultThresholdMinScore  = 0.5
	DefaultThresholdMaxChunks = 5
	minThresholdCandidates    = 10
)

// Retriever turns a query into a scored, filtered and formatted corpus evidence
// bundle. Index failures degrade to a failed bundle and are never returned.
type Retriever struct {
	index ports.VectorIndex
	topK  int
	floor float64
}

func NewRetriever(index ports.VectorIndex, topK int, floor float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if floor <= 0 || floor > 1 {
		floor = DefaultRelevanceFloor
	}
	return &Retriever{
		index: index,
		topK:  topK,
		floor: floor,
	}
}

// SimilarityFromDistance maps cosine distance onto [0,1], higher is closer.
func SimilarityFromDistance(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	return math.Min(1, math.Max(0, 1-distance/2))
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filter domain.SearchFilter) domain.EvidenceBundle {
	if k <= 0 {
		k = r.topK
	}

	hits, err := r.index.Query(ctx, query, k, filter)
	if err != nil {
		return domain.FailedEvidence(msgRetrievalFailed, domain.WrapError(domain.ErrRetrievalDegraded, "query vector index", err))
	}
	if len(hits) == 0 {
		return domain.EmptyEvidence(msgNoDocuments)
	}

	items := make([]domain.EvidenceItem, 0, len(hits))
	for _, hit := range hits {
		item := evidenceFromHit(hit)
		if item.Score < r.floor {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return domain.EmptyEvidence(msgNoRelevantChunks)
	}
	return documentBundle(items)
}

// RetrieveWithThreshold over-fetches, then applies a caller-supplied score floor
// and truncates to maxChunks.
func (r *Retriever) RetrieveWithThreshold(ctx context.Context, query string, minScore float64, maxChunks int) domain.EvidenceBundle {
	if minScore <= 0 || minScore > 1 {
		minScore = DefaultThresholdMinScore
	}
	if maxChunks <= 0 {
		maxChunks = DefaultThresholdMaxChunks
	}
	candidates := max(maxChunks*2, minThresholdCandidates)

	base := r.Retrieve(ctx, query, candidates, domain.SearchFilter{})
	if base.Status == domain.EvidenceFailed {
		return base
	}

	items := make([]domain.EvidenceItem, 0, maxChunks)
	for _, item := range base.Items {
		if item.Score < minScore {
			continue
		}
		items = append(items, item)
		if len(items) == maxChunks {
			break
		}
	}
	if len(items) == 0 {
		return domain.EmptyEvidence(fmt.Sprintf(msgBelowThreshold, minScore))
	}
	return documentBundle(items)
}

func evidenceFromHit(hit domain.IndexHit) domain.EvidenceItem {
	item := domain.EvidenceItem{
		Text:       hit.Text,
		Source:     hit.Metadata.String(domain.MetaFilename),
		DocumentID: hit.Metadata.String(domain.MetaDocumentID),
		Score:      SimilarityFromDistance(hit.Distance),
	}
	if ordinal, ok := hit.Metadata.Int(domain.MetaChunkIndex); ok {
		item.Ordinal = &ordinal
	}
	return item
}

func documentBundle(items []domain.EvidenceItem) domain.EvidenceBundle {
	sources := make([]string, 0, len(items))
	for _, item := range items {
		sources = append(sources, item.Source)
	}
	return domain.EvidenceBundle{
		Items:   items,
		Context: formatDocumentContext(items),
		Sources: uniqueNonEmpty(sources),
		Status:  domain.EvidenceFound,
	}
}
