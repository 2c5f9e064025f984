package prompt

import (
	"fmt"
	"strings"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
	"promptloom/internal/worldinfo"
)

const (
	UserMacro = "{{user}}"
	CharMacro = "{{char}}"
)

// Fragment is a preset item with its content resolved for the current turn.
type Fragment struct {
	Identifier string
	Role       chat.Role
	Content    string
	Depth      int
	Order      int
	Position   preset.InjectionPosition
	// History marks the chatHistory anchor. It carries no content; Inject places the
	// conversation where it sits.
	History bool
}

type Note struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

type ResolveInput struct {
	Names              chat.Names
	CharDescription    string
	PersonaDescription string
	WorldInfo          worldinfo.Blocks
	Overrides          map[string]string
}

// Resolve turns the enabled preset items into fragments in source order. Items that
// resolve to nothing are left out and reported as notes. The first chatHistory item
// becomes the history anchor; later ones are dropped.
func Resolve(items []preset.Item, in ResolveInput) ([]Fragment, []Note) {
	src := preset.Sources{
		CharDescription:    in.CharDescription,
		PersonaDescription: in.PersonaDescription,
		WorldInfoBefore:    in.WorldInfo.Before,
		WorldInfoAfter:     in.WorldInfo.After,
	}
	macros := strings.NewReplacer(UserMacro, in.Names.User, CharMacro, in.Names.Char)

	fragments := make([]Fragment, 0, len(items))
	var notes []Note
	anchored := false
	for _, item := range items {
		if !item.Enabled {
			notes = append(notes, Note{Identifier: item.Identifier, Reason: "disabled"})
			continue
		}

		var content string
		if placeholder := item.Placeholder(); placeholder != nil {
			if !item.Implemented {
				notes = append(notes, Note{Identifier: item.Identifier, Reason: fmt.Sprintf("placeholder %q not implemented", placeholder.Tag())})
				continue
			}
			if _, ok := placeholder.(preset.ChatHistory); ok {
				if anchored {
					notes = append(notes, Note{Identifier: item.Identifier, Reason: "duplicate chat history anchor"})
					continue
				}
				anchored = true
				fragments = append(fragments, Fragment{
					Identifier: item.Identifier,
					Role:       item.EffectiveRole(),
					Depth:      item.Depth(),
					Order:      item.Order(),
					Position:   item.Position(),
					History:    true,
				})
				continue
			}
			resolved, ok := placeholder.Resolve(src)
			if !ok {
				notes = append(notes, Note{Identifier: item.Identifier, Reason: fmt.Sprintf("unsupported placeholder type %q", placeholder.Tag())})
				continue
			}
			content = resolved
		} else {
			content = item.Content
			if override, ok := in.Overrides[item.Identifier]; ok {
				if item.ForbidOverrides {
					notes = append(notes, Note{Identifier: item.Identifier, Reason: "override ignored: forbid_overrides set"})
				} else {
					content = override
				}
			}
			content = macros.Replace(content)
		}

		if strings.TrimSpace(content) == "" {
			notes = append(notes, Note{Identifier: item.Identifier, Reason: "empty content"})
			continue
		}

		fragments = append(fragments, Fragment{
			Identifier: item.Identifier,
			Role:       item.EffectiveRole(),
			Content:    content,
			Depth:      item.Depth(),
			Order:      item.Order(),
			Position:   item.Position(),
		})
	}
	return fragments, notes
}
