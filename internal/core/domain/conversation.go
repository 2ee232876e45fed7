package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Thread struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is append-only. Sources holds referenced document ids followed by web
// URLs when web search contributed.
type Message struct {
	ID            string    `json:"id"`
	ThreadID      string    `json:"thread_id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	Sources       []string  `json:"sources"`
	WebSearchUsed bool      `json:"web_search_used"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is one role-tagged turn handed to the language model.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message         string
	ThreadID        string
	DocumentID      string
	EnableWebSearch bool
}

type ChatResponse struct {
	AssistantText string   `json:"assistant_text"`
	ThreadID      string   `json:"thread_id"`
	Sources       []string `json:"sources"`
	EvidenceCount int      `json:"evidence_count"`
	WebSearchUsed bool     `json:"web_search_used"`
	MessageID     string   `json:"message_id"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Skip    int  `json:"skip"`
	HasMore bool `json:"has_more"`
}

func NewPagination(total, skip, limit int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Skip:    skip,
		HasMore: skip+limit < total,
	}
}

type ThreadPage struct {
	Threads    []Thread   `json:"threads"`
	Pagination Pagination `json:"pagination"`
}

type MessageView struct {
	Message
	SourceDocuments []string `json:"source_documents"`
}

type MessagePage struct {
	Thread     Thread        `json:"thread"`
	Messages   []MessageView `json:"messages"`
	Pagination Pagination    `json:"pagination"`
}
