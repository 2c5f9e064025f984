package prompt

import (
	"strings"

	"promptloom/internal/chat"
)

// Merge drops blank messages and folds each message into its predecessor when both share
// a role. Merge(Merge(x)) equals Merge(x).
func Merge(messages []chat.Message) []chat.Message {
	merged := make([]chat.Message, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if last := len(merged) - 1; last >= 0 && merged[last].Role == msg.Role {
			merged[last].Content += joinSeparator + msg.Content
			continue
		}
		merged = append(merged, msg)
	}
	return merged
}
