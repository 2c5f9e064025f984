package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"promptloom/internal/chat"
)

type BookSummary struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Entries int    `json:"entries"`
}

type PresetSummary struct {
	Name      string    `json:"name"`
	Items     int       `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SearchResult struct {
	Book     string  `json:"book"`
	EntryID  string  `json:"entry_id"`
	Title    string  `json:"title"`
	Strategy string  `json:"strategy"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
}

// PrepareMessage fills in the id and timestamp of a message about to be stored.
func PrepareMessage(m chat.Message, now time.Time) chat.Message {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp == nil {
		ts := now.UTC()
		m.Timestamp = &ts
	}
	m.Role = chat.ParseRole(string(m.Role))
	return m
}
