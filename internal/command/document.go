package command

import (
	"fmt"
	"strings"
)

// DocumentFromValue converts a loosely typed handler result into a
// Document. Accepted shapes are nil, a string (the body), a *Document, or a
// map with optional title, body and items keys where items is a list of
// strings or maps with title, subtitle and accessory.
func DocumentFromValue(v any) (*Document, error) {
	switch val := v.(type) {
	case nil:
		return &Document{}, nil
	case *Document:
		return val, nil
	case string:
		return &Document{Body: val}, nil
	case map[string]any:
		doc := &Document{
			Title: stringOf(val["title"]),
			Body:  stringOf(val["body"]),
		}
		switch items := val["items"].(type) {
		case nil:
		case []any:
			for i, raw := range items {
				item, err := itemFromValue(raw)
				if err != nil {
					return nil, fmt.Errorf("items[%d]: %w", i, err)
				}
				doc.Items = append(doc.Items, item)
			}
		case map[string]any:
			if len(items) != 0 {
				return nil, fmt.Errorf("items must be a list")
			}
		default:
			return nil, fmt.Errorf("items must be a list, got %T", items)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("cannot render %T", v)
	}
}

func itemFromValue(v any) (Item, error) {
	switch val := v.(type) {
	case string:
		return Item{Title: val}, nil
	case map[string]any:
		return Item{
			Title:     stringOf(val["title"]),
			Subtitle:  stringOf(val["subtitle"]),
			Accessory: stringOf(val["accessory"]),
		}, nil
	default:
		return Item{}, fmt.Errorf("item must be a string or table, got %T", v)
	}
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// String renders the document as plain text.
func (d *Document) String() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	if d.Title != "" {
		b.WriteString(d.Title)
		b.WriteByte('\n')
	}
	if d.Body != "" {
		b.WriteString(d.Body)
		b.WriteByte('\n')
	}
	for _, it := range d.Items {
		b.WriteString("  ")
		b.WriteString(it.Title)
		if it.Subtitle != "" {
			b.WriteString(" - ")
			b.WriteString(it.Subtitle)
		}
		if it.Accessory != "" {
			b.WriteString(" [")
			b.WriteString(it.Accessory)
			b.WriteByte(']')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
