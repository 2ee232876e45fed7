package usecase

import "github.com/kirillkom/grounded-chat/internal/core/domain"

const DefaultHistoryLimit = 5

// AssembleConversation builds the model input. recentHistory is expected newest
// first, as the store returns it; the output is oldest to newest after the
// system message. Roles other than user and assistant are dropped.
func AssembleConversation(systemPrompt, fusedContext string, recentHistory []domain.Message) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(recentHistory)+2)
	out = append(out, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: systemPrompt + "\n\n" + fusedContext,
	})

	for i := len(recentHistory) - 1; i >= 0; i-- {
		msg := recentHistory[i]
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			continue
		}
		out = append(out, domain.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// AppendCurrentTurn adds the current user message unless history already ends
// with it.
func AppendCurrentTurn(messages []domain.ChatMessage, current domain.Message) []domain.ChatMessage {
	if len(messages) > 1 {
		last := messages[len(messages)-1]
		if last.Role == domain.RoleUser && last.Content == current.Content {
			return messages
		}
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: current.Content})
}
