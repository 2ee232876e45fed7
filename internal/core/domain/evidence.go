package domain

import "time"

type EvidenceStatus string

const (
	// EvidenceFound means the source succeeded and returned at least one item.
	EvidenceFound EvidenceStatus = "found"
	// EvidenceEmpty means the source succeeded with nothing usable.
	EvidenceEmpty EvidenceStatus = "empty"
	// EvidenceFailed means the adapter behind the source failed.
	EvidenceFailed EvidenceStatus = "failed"
	// EvidenceSkipped means the source was not consulted for this request.
	EvidenceSkipped EvidenceStatus = "skipped"
)

type EvidenceItem struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	Score      float64 `json:"score"`
	Ordinal    *int    `json:"ordinal,omitempty"`
}

// EvidenceBundle is the normalized output of one evidence source.
type EvidenceBundle struct {
	Items   []EvidenceItem `json:"items"`
	Context string         `json:"context"`
	Sources []string       `json:"sources"`
	Status  EvidenceStatus `json:"status"`
	Err     error          `json:"-"`
}

func (b EvidenceBundle) HasItems() bool {
	return len(b.Items) > 0
}

func (b EvidenceBundle) Succeeded() bool {
	return b.Status == EvidenceFound
}

func SkippedEvidence() EvidenceBundle {
	return EvidenceBundle{Status: EvidenceSkipped}
}

func EmptyEvidence(context string) EvidenceBundle {
	return EvidenceBundle{Context: context, Status: EvidenceEmpty}
}

func FailedEvidence(context string, err error) EvidenceBundle {
	return EvidenceBundle{Context: context, Status: EvidenceFailed, Err: err}
}

// ChatObservation summarizes one completed chat request for metrics.
type ChatObservation struct {
	Branch          string
	CorpusStatus    EvidenceStatus
	WebStatus       EvidenceStatus
	EvidenceCount   int
	PromptChars     int
	CompletionChars int
	Duration        time.Duration
}
