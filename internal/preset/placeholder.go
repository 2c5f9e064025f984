package preset

import "strings"

// Sources carries the values placeholders resolve to for one turn.
type Sources struct {
	CharDescription    string
	PersonaDescription string
	WorldInfoBefore    string
	WorldInfoAfter     string
}

// Placeholder is the closed set of dynamic fragment kinds. Resolve reports false for kinds
// that have no implementation.
type Placeholder interface {
	Tag() string
	Resolve(src Sources) (string, bool)
	sealed()
}

// ChatHistory anchors the conversation. The history is spliced in as real messages where
// the anchor sits, so it renders no text of its own.
type ChatHistory struct{}

func (ChatHistory) Tag() string {
	return "chatHistory"
}

func (ChatHistory) Resolve(Sources) (string, bool) {
	return "", true
}

func (ChatHistory) sealed() {}

type CharDescription struct{}

func (CharDescription) Tag() string {
	return "charDescription"
}

func (CharDescription) Resolve(src Sources) (string, bool) {
	return src.CharDescription, true
}

func (CharDescription) sealed() {}

type PersonaDescription struct{}

func (PersonaDescription) Tag() string {
	return "personaDescription"
}

func (PersonaDescription) Resolve(src Sources) (string, bool) {
	return src.PersonaDescription, true
}

func (PersonaDescription) sealed() {}

type WorldInfoBefore struct{}

func (WorldInfoBefore) Tag() string {
	return "worldInfoBefore"
}

func (WorldInfoBefore) Resolve(src Sources) (string, bool) {
	return src.WorldInfoBefore, true
}

func (WorldInfoBefore) sealed() {}

type WorldInfoAfter struct{}

func (WorldInfoAfter) Tag() string {
	return "worldInfoAfter"
}

func (WorldInfoAfter) Resolve(src Sources) (string, bool) {
	return src.WorldInfoAfter, true
}

func (WorldInfoAfter) sealed() {}

// Unsupported is any placeholder tag without an implementation, e.g. dialogue examples.
type Unsupported struct {
	Name string
}

func (u Unsupported) Tag() string {
	return u.Name
}

func (Unsupported) Resolve(Sources) (string, bool) {
	return "", false
}

func (Unsupported) sealed() {}

func ParsePlaceholder(tag string) Placeholder {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "chathistory":
		return ChatHistory{}
	case "chardescription":
		return CharDescription{}
	case "personadescription":
		return PersonaDescription{}
	case "worldinfobefore":
		return WorldInfoBefore{}
	case "worldinfoafter":
		return WorldInfoAfter{}
	default:
		return Unsupported{Name: tag}
	}
}
