package preset

import (
	"strings"

	"promptloom/internal/chat"
)

const (
	DefaultDepth = 0
	DefaultOrder = 100
)

type InjectionPosition string

const (
	PositionRelative InjectionPosition = "relative"
	PositionBefore   InjectionPosition = "before"
	PositionAfter    InjectionPosition = "after"
)

func ParsePosition(value string) (InjectionPosition, bool) {
	switch InjectionPosition(strings.ToLower(strings.TrimSpace(value))) {
	case PositionRelative, "":
		return PositionRelative, true
	case PositionBefore:
		return PositionBefore, true
	case PositionAfter:
		return PositionAfter, true
	default:
		return "", false
	}
}

type Item struct {
	Identifier        string            `json:"identifier" yaml:"identifier"`
	Name              string            `json:"name" yaml:"name"`
	Content           string            `json:"content" yaml:"content"`
	Enabled           bool              `json:"enabled" yaml:"enabled"`
	IsPlaceholder     bool              `json:"is_placeholder" yaml:"is_placeholder"`
	PlaceholderType   string            `json:"placeholder_type,omitempty" yaml:"placeholder_type"`
	Implemented       bool              `json:"implemented" yaml:"implemented"`
	InjectionDepth    *int              `json:"injection_depth,omitempty" yaml:"injection_depth"`
	InjectionOrder    *int              `json:"injection_order,omitempty" yaml:"injection_order"`
	InjectionPosition InjectionPosition `json:"injection_position,omitempty" yaml:"injection_position"`
	Role              chat.Role         `json:"role,omitempty" yaml:"role"`
	ForbidOverrides   bool              `json:"forbid_overrides,omitempty" yaml:"forbid_overrides"`
	Marker            bool              `json:"marker,omitempty" yaml:"marker"`
}

// Depth returns the injection depth, treating missing or negative values as DefaultDepth.
func (i Item) Depth() int {
	if i.InjectionDepth == nil || *i.InjectionDepth < 0 {
		return DefaultDepth
	}
	return *i.InjectionDepth
}

// Order returns the injection order, treating a missing value as DefaultOrder.
func (i Item) Order() int {
	if i.InjectionOrder == nil {
		return DefaultOrder
	}
	return *i.InjectionOrder
}

func (i Item) Position() InjectionPosition {
	pos, ok := ParsePosition(string(i.InjectionPosition))
	if !ok {
		return PositionRelative
	}
	return pos
}

func (i Item) EffectiveRole() chat.Role {
	return chat.ParseRole(string(i.Role))
}

// Placeholder returns the placeholder kind for placeholder items and nil otherwise.
func (i Item) Placeholder() Placeholder {
	if !i.IsPlaceholder {
		return nil
	}
	return ParsePlaceholder(i.PlaceholderType)
}

type Preset struct {
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items"`
}
