package entities

// ChatRole is the author of a chat turn.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// SocialDraft is a generated social post for a newly published article.
type SocialDraft struct {
	Platform string `json:"platform"`
	Text     string `json:"text"`
	Link     string `json:"link"`
}
