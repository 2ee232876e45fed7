package domain

// SearchFilter restricts index operations to chunks whose metadata matches.
// An empty filter matches everything.
type SearchFilter struct {
	DocumentID string
}

func (f SearchFilter) IsEmpty() bool {
	return f.DocumentID == ""
}

// Metadata renders the filter as equality constraints on chunk metadata.
func (f SearchFilter) Metadata() Metadata {
	out := Metadata{}
	if f.DocumentID != "" {
		out[MetaDocumentID] = StringValue(f.DocumentID)
	}
	return out
}

// IndexRecord is one chunk handed to the vector index.
type IndexRecord struct {
	ID       string
	Text     string
	Metadata Metadata
}

// IndexHit is one nearest-neighbour result. Distance is cosine distance, so 0 is
// identical and 2 is opposite.
type IndexHit struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float64
}

type WebResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

type WebSearchResponse struct {
	Answer  string      `json:"answer,omitempty"`
	Results []WebResult `json:"results"`
}
