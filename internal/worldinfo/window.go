package worldinfo

import (
	"strings"

	"promptloom/internal/chat"
)

// BuildWindow renders the last ScanDepth messages, oldest first, one per line. With
// IncludeNames each line is prefixed by the speaker name.
func BuildWindow(history []chat.Message, settings Settings, names chat.Names) string {
	if settings.ScanDepth <= 0 || len(history) == 0 {
		return ""
	}
	start := len(history) - settings.ScanDepth
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, len(history)-start)
	for _, msg := range history[start:] {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		line := msg.Content
		if settings.IncludeNames {
			if speaker := names.Speaker(msg); speaker != "" {
				line = speaker + ": " + msg.Content
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func extendWindow(window, addition string) string {
	if addition == "" {
		return window
	}
	if window == "" {
		return addition
	}
	return window + "\n" + addition
}
