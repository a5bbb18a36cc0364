package fs

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/continuum/pkg/core"
)

// Frontmatter fields the store maps onto CanonicalDocument. Any other field
// is kept in Metadata.
const (
	FieldKey       = "key"
	FieldTitle     = "title"
	FieldGoverned  = "governed"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// MarkdownSerializer reads markdown documents with a YAML frontmatter block
// and rewrites individual frontmatter fields in place.
type MarkdownSerializer struct{}

// field is one frontmatter assignment, applied in order.
type field struct {
	name  string
	value any
}

// Parse decodes data into a document. Identity fields (ID, default key,
// timestamps from the file) are filled in by the store.
func (MarkdownSerializer) Parse(data []byte) (core.CanonicalDocument, error) {
	front, body, ok, err := splitFrontmatter(data)
	if err != nil {
		return core.CanonicalDocument{}, err
	}

	doc := core.CanonicalDocument{Content: string(body)}
	if !ok {
		return doc, nil
	}

	meta := make(core.Metadata)
	if err := yaml.Unmarshal(front, &meta); err != nil {
		return core.CanonicalDocument{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	if v, ok := meta[FieldKey].(string); ok {
		doc.Key = v
	}
	if v, ok := meta[FieldTitle].(string); ok {
		doc.Title = v
	}
	if v, ok := asBool(meta[FieldGoverned]); ok {
		doc.Governed = v
	}
	if v, ok := asTime(meta[FieldCreatedAt]); ok {
		doc.CreatedAt = v
	}
	if v, ok := asTime(meta[FieldUpdatedAt]); ok {
		doc.UpdatedAt = v
	}
	for _, name := range []string{FieldKey, FieldTitle, FieldGoverned, FieldCreatedAt, FieldUpdatedAt} {
		delete(meta, name)
	}
	if len(meta) > 0 {
		doc.Metadata = meta
	}
	return doc, nil
}

// SetFields rewrites the named frontmatter fields of data, keeping every other
// field, its order and comments, and the body byte for byte. A document
// without frontmatter gains one.
func (MarkdownSerializer) SetFields(data []byte, fields ...field) ([]byte, error) {
	front, body, ok, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	out := mapping
	if ok {
		var root yaml.Node
		if err := yaml.Unmarshal(front, &root); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		if len(root.Content) > 0 {
			if root.Content[0].Kind != yaml.MappingNode {
				return nil, errors.New("frontmatter is not a mapping")
			}
			mapping = root.Content[0]
			out = &root
		}
	}

	for _, f := range fields {
		if err := setField(mapping, f.name, f.value); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

func setField(mapping *yaml.Node, name string, value any) error {
	var val yaml.Node
	if err := val.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == name {
			// Overwrite in place so comments attached to the node survive.
			existing := mapping.Content[i+1]
			existing.Kind = val.Kind
			existing.Style = val.Style
			existing.Tag = val.Tag
			existing.Value = val.Value
			existing.Content = val.Content
			return nil
		}
	}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
	mapping.Content = append(mapping.Content, key, &val)
	return nil
}

// splitFrontmatter separates a leading "---" delimited block from the body.
// The closing delimiter must be on a line of its own.
func splitFrontmatter(data []byte) (front, body []byte, ok bool, err error) {
	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte("---\n")):
		rest = data[4:]
	case bytes.HasPrefix(data, []byte("---\r\n")):
		rest = data[5:]
	default:
		return nil, data, false, nil
	}

	offset := 0
	for {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		var text []byte
		if end < 0 {
			text = line
		} else {
			text = line[:end]
		}
		if string(bytes.TrimRight(text, "\r")) == "---" {
			front = rest[:offset]
			if end < 0 {
				return front, nil, true, nil
			}
			return front, rest[offset+end+1:], true, nil
		}
		if end < 0 {
			return nil, nil, false, errors.New("frontmatter started but no closing delimiter found")
		}
		offset += end + 1
	}
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	return false, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
