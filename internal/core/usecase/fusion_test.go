package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

func TestSelectFusionBranch(t *testing.T) {
	cases := []struct {
		docHas, webOK bool
		want          FusionBranch
	}{
		{true, true, FusionDocumentsAndWeb},
		{true, false, FusionDocumentsOnly},
		{false, true, FusionWebOnly},
		{false, false, FusionNoEvidence},
	}
	for _, tc := range cases {
		if got := SelectFusionBranch(tc.docHas, tc.webOK); got != tc.want {
			t.Fatalf("SelectFusionBranch(%v, %v) = %s, want %s", tc.docHas, tc.webOK, got, tc.want)
		}
	}
}

func foundDocs() domain.EvidenceBundle {
	return domain.EvidenceBundle{
		Items:   []domain.EvidenceItem{{Text: "AI is ...", Source: "ai.txt", Score: 0.9}},
		Context: "DOC-CONTEXT",
		Sources: []string{"ai.txt"},
		Status:  domain.EvidenceFound,
	}
}

func foundWeb() domain.EvidenceBundle {
	return domain.EvidenceBundle{
		Items:   []domain.EvidenceItem{{Text: "web", Source: "https://example.com", Score: 1}},
		Context: "WEB-CONTEXT",
		Sources: []string{"https://example.com"},
		Status:  domain.EvidenceFound,
	}
}

func TestFuseContextDocumentsAndWeb(t *testing.T) {
	got := FuseContext(foundDocs(), foundWeb(), "What is AI?")
	want := fusedDocumentLabel + "DOC-CONTEXT\n\n" + fusedWebLabel + "WEB-CONTEXT\n\n" +
		"User Question: What is AI?\n\n" + instructBothSources
	if got != want {
		t.Fatalf("unexpected fused context:\n%s", got)
	}
}

func TestFuseContextDocumentsOnlyIgnoresFailedWeb(t *testing.T) {
	web := domain.FailedEvidence(msgWebSearchFailed, nil)
	got := FuseContext(foundDocs(), web, "What is AI?")
	want := "DOC-CONTEXT\n\nUser Question: What is AI?\n\n" + instructDocumentsOnly
	if got != want {
		t.Fatalf("unexpected fused context:\n%s", got)
	}
	if strings.Contains(got, msgWebSearchFailed) {
		t.Fatalf("failed web context must not leak into prompt")
	}
}

func TestFuseContextWebOnly(t *testing.T) {
	got := FuseContext(domain.EmptyEvidence(msgNoDocuments), foundWeb(), "latest Go release")
	want := "WEB-CONTEXT\n\nUser Question: latest Go release\n\n" + instructWebOnly
	if got != want {
		t.Fatalf("unexpected fused context:\n%s", got)
	}
}

func TestFuseContextNoEvidenceDistinguishesDisabledWeb(t *testing.T) {
	disabled := FuseContext(domain.EmptyEvidence(msgNoDocuments), domain.SkippedEvidence(), "q")
	if !strings.Contains(disabled, noteWebDisabled) || !strings.HasSuffix(disabled, instructNoInfo) {
		t.Fatalf("unexpected disabled context:\n%s", disabled)
	}

	noResults := FuseContext(domain.EmptyEvidence(msgNoDocuments), domain.EmptyEvidence(msgNoWebResults), "q")
	if !strings.Contains(noResults, noteWebNoResults) {
		t.Fatalf("unexpected no-results context:\n%s", noResults)
	}
}

func TestFuseContextIsDeterministic(t *testing.T) {
	a := FuseContext(foundDocs(), foundWeb(), "q")
	b := FuseContext(foundDocs(), foundWeb(), "q")
	if a != b {
		t.Fatalf("fusion is not deterministic")
	}
}
