package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagInput is the raw tags value of a draft: either the text typed into a
// comma separated field or an already itemized list.
type TagInput struct {
	text     string
	items    []string
	itemized bool
}

// TagText wraps a comma separated tags string.
func TagText(s string) TagInput {
	return TagInput{text: s}
}

// TagList wraps an itemized list of tags.
func TagList(items ...string) TagInput {
	return TagInput{items: append([]string{}, items...), itemized: true}
}

// IsList reports whether the input was given as a list.
func (t TagInput) IsList() bool { return t.itemized }

// Text returns the raw string form. Lists are joined with ", ".
func (t TagInput) Text() string {
	if t.itemized {
		return strings.Join(t.items, ", ")
	}
	return t.text
}

// Items returns the raw list form, or nil for a string input.
func (t TagInput) Items() []string {
	if !t.itemized {
		return nil
	}
	return append([]string(nil), t.items...)
}

func (t TagInput) String() string { return t.Text() }

// MarshalJSON keeps the shape the value was given in.
func (t TagInput) MarshalJSON() ([]byte, error) {
	if t.itemized {
		return json.Marshal(t.items)
	}
	return json.Marshal(t.text)
}

// UnmarshalJSON accepts a string, a list of strings or null.
func (t *TagInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*t = TagInput{}
		return nil
	case trimmed[0] == '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		*t = TagList(items...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		*t = TagText(s)
		return nil
	}
}

// UnmarshalYAML accepts a scalar or a sequence node.
func (t *TagInput) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		*t = TagList(items...)
	case yaml.ScalarNode:
		*t = TagText(value.Value)
	default:
		return fmt.Errorf("tags: unsupported yaml node kind %d", value.Kind)
	}
	return nil
}
