package ai

// Role of a chat message sent to the inference provider.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// PartType enum
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

// Part is one piece of a multimodal message. Text is set for PartText,
// ImageURL (http url or data: uri) for PartImage.
type Part struct {
	Type     PartType
	Text     string
	ImageURL string
}

// Message is a role-tagged prompt message. Either Text or Parts is used, never both.
type Message struct {
	Role  Role
	Text  string
	Parts []Part
}

// IsMultipart reports whether the message carries a list of parts.
func (m Message) IsMultipart() bool { return len(m.Parts) > 0 }

// InferenceRequest is what the Client sends to the provider.
type InferenceRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
}
