package chat

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a stored role tag to a Role. Unknown or empty tags fall back to system.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser
	case RoleAssistant:
		return RoleAssistant
	default:
		return RoleSystem
	}
}

func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

type Message struct {
	ID        string     `json:"id,omitempty"`
	Role      Role       `json:"role"`
	Name      string     `json:"name,omitempty"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Names holds the speaker names substituted for macros and used when scanning with names.
type Names struct {
	User string
	Char string
}

// Speaker returns the display name for a message: its own name if set, otherwise the
// profile name for its role.
func (n Names) Speaker(m Message) string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	switch m.Role {
	case RoleUser:
		return n.User
	case RoleAssistant:
		return n.Char
	default:
		return ""
	}
}
