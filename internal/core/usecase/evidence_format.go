package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

// formatDocumentContext groups items by parent document in first-seen order and
// renders each group as a numbered chunk list under its filename.
func formatDocumentContext(items []domain.EvidenceItem) string {
	type group struct {
		filename string
		items    []domain.EvidenceItem
	}

	order := make([]string, 0)
	groups := make(map[string]*group)
	for _, item := range items {
		key := item.DocumentID
		if key == "" {
			key = unknownDocumentID
		}
		g, ok := groups[key]
		if !ok {
			g = &group{filename: item.Source}
			groups[key] = g
			order = append(order, key)
		}
		g.items = append(g.items, item)
	}

	parts := []string{documentContextHeader}
	for _, key := range order {
		g := groups[key]
		filename := g.filename
		if filename == "" {
			filename = unknownDocumentName
		}
		parts = append(parts, fmt.Sprintf("\n--- Source: %s ---\n", filename))

		sorted := append([]domain.EvidenceItem(nil), g.items...)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if a.Ordinal != nil && b.Ordinal != nil {
				return *a.Ordinal < *b.Ordinal
			}
			return a.Score > b.Score
		})
		for idx, item := range sorted {
			parts = append(parts, fmt.Sprintf("[Chunk %d] %s\n", idx+1, strings.TrimSpace(item.Text)))
		}
	}
	parts = append(parts, documentContextFooter, documentInstructions)
	return strings.Join(parts, "\n")
}

func formatWebContext(results []domain.WebResult, answer string) string {
	parts := []string{webContextHeader}
	if answer != "" {
		parts = append(parts, fmt.Sprintf("\nSummary Answer: %s\n", answer))
	}
	for i, result := range results {
		url := result.URL
		if url == "" {
			url = unknownWebSource
		}
		title := result.Title
		if title == "" {
			title = fmt.Sprintf("Result %d", i+1)
		}
		parts = append(parts, fmt.Sprintf("\n--- Source %d: %s ---", i+1, title))
		parts = append(parts, fmt.Sprintf("URL: %s\n", url))
		if content := strings.TrimSpace(result.Content); content != "" {
			parts = append(parts, content+"\n")
		}
	}
	parts = append(parts, webContextFooter, webInstructions)
	return strings.Join(parts, "\n")
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
