package engine

// Roles used in Message.Role.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions are the sampling parameters for a single call.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
	// JSON requests the backend's JSON output mode.
	JSON bool
}

// DefaultChatOptions are used when the configuration leaves them unset.
var DefaultChatOptions = ChatOptions{Temperature: 0.1, MaxTokens: 1024, JSON: true}

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
