package bot

import (
	"sync"

	"fitcoach/internal/fitness"
	"fitcoach/internal/gpt"
)

// History keeps the recent coach conversation per Telegram chat.
type History struct {
	mu    sync.Mutex
	chats map[int64][]gpt.Message
	limit int
}

func NewHistory() *History {
	return &History{chats: make(map[int64][]gpt.Message), limit: fitness.MaxChatHistory}
}

// Get returns a copy of the chat's history.
func (h *History) Get(chatID int64) []gpt.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]gpt.Message(nil), h.chats[chatID]...)
}

// Record appends one exchange and drops the oldest turns past the limit.
func (h *History) Record(chatID int64, question, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := append(h.chats[chatID],
		gpt.Message{Role: gpt.RoleUser, Content: question},
		gpt.Message{Role: gpt.RoleAssistant, Content: answer},
	)
	if len(msgs) > h.limit {
		msgs = append([]gpt.Message(nil), msgs[len(msgs)-h.limit:]...)
	}
	h.chats[chatID] = msgs
}

func (h *History) Reset(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.chats, chatID)
}
