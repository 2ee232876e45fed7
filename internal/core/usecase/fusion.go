package usecase

import (
	"strings"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type FusionBranch string

const (
	FusionDocumentsAndWeb FusionBranch = "documents_and_web"
	FusionDocumentsOnly   FusionBranch = "documents_only"
	FusionWebOnly         FusionBranch = "web_only"
	FusionNoEvidence      FusionBranch = "no_evidence"
)

// SelectFusionBranch depends only on whether the corpus produced items and
// whether web search succeeded.
func SelectFusionBranch(docHasItems, webSucceeded bool) FusionBranch {
	switch {
	case docHasItems && webSucceeded:
		return FusionDocumentsAndWeb
	case docHasItems:
		return FusionDocumentsOnly
	case webSucceeded:
		return FusionWebOnly
	default:
		return FusionNoEvidence
	}
}

func FusionBranchFor(doc, web domain.EvidenceBundle) FusionBranch {
	return SelectFusionBranch(doc.HasItems(), web.Succeeded())
}

// FuseContext merges the corpus and web bundles into the instruction block that
// follows the system prompt.
func FuseContext(doc, web domain.EvidenceBundle, query string) string {
	var b strings.Builder
	question := "User Question: " + query + "\n\n"

	switch FusionBranchFor(doc, web) {
	case FusionDocumentsAndWeb:
		b.WriteString(fusedDocumentLabel)
		b.WriteString(doc.Context + "\n\n")
		b.WriteString(fusedWebLabel)
		b.WriteString(web.Context + "\n\n")
		b.WriteString(question)
		b.WriteString(instructBothSources)
	case FusionDocumentsOnly:
		b.WriteString(doc.Context + "\n\n")
		b.WriteString(question)
		b.WriteString(instructDocumentsOnly)
	case FusionWebOnly:
		b.WriteString(web.Context + "\n\n")
		b.WriteString(question)
		b.WriteString(instructWebOnly)
	default:
		b.WriteString(question)
		if web.Status == domain.EvidenceSkipped {
			b.WriteString(noteWebDisabled)
		} else {
			b.WriteString(noteWebNoResults)
		}
		b.WriteString(instructNoInfo)
	}
	return b.String()
}
