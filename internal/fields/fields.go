// Package fields implements the update-classification and merge semantics for
// collection item writes. Payload keys may carry a prefix that changes how the
// value is applied:
//
//	date_<name>     parsed into a time value, stored under <name>
//	safebool_<name> coerced to a boolean, stored under <name>
//	refs_<name>     replace-all reference operation for field <name>
//	image_<name>    asynchronous media import bound to field <name>
//
// Keys without a recognized prefix pass through verbatim. The prefixes are
// parsed once at the boundary into typed operations so the rest of the system
// never inspects key strings.
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	datePrefix  = "date_"
	boolPrefix  = "safebool_"
	refsPrefix  = "refs_"
	imagePrefix = "image_"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// ReferenceOp replaces the full id list of a reference field. Operations are
// applied after the main field update, one write per field, in the order the
// keys appeared in the payload.
type ReferenceOp struct {
	Field string
	IDs   []string
}

// ImageImport requests an asynchronous media import whose result is written
// back to Field once the transfer completes.
type ImageImport struct {
	Field     string
	SourceURL string
}

// UpdateSet is the classified form of an updates payload.
type UpdateSet struct {
	// Fields holds the values merged into the item document: plain keys
	// verbatim, date_ and safebool_ keys coerced and stripped.
	Fields map[string]any
	// Refs and Imports preserve payload key order.
	Refs    []ReferenceOp
	Imports []ImageImport
}

// Parse decodes a raw JSON object of field updates and classifies every entry
// by key prefix. The raw bytes are walked token by token so the payload's key
// order survives into Refs and Imports.
func Parse(raw json.RawMessage) (UpdateSet, error) {
	set := UpdateSet{Fields: map[string]any{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return set, fmt.Errorf("updates object is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	open, err := dec.Token()
	if err != nil {
		return set, fmt.Errorf("decode updates: %w", err)
	}
	if delim, ok := open.(json.Delim); !ok || delim != '{' {
		return set, fmt.Errorf("updates must be a JSON object")
	}
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return set, fmt.Errorf("decode updates: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return set, fmt.Errorf("decode updates: unexpected token %v", keyToken)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return set, fmt.Errorf("decode updates value for %q: %w", key, err)
		}
		if err := set.classify(key, value); err != nil {
			return set, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return set, fmt.Errorf("decode updates: %w", err)
	}
	return set, nil
}

func (s *UpdateSet) classify(key string, value any) error {
	switch {
	case strings.HasPrefix(key, datePrefix):
		name := strings.TrimPrefix(key, datePrefix)
		parsed, err := ParseDate(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		s.Fields[name] = parsed
	case strings.HasPrefix(key, boolPrefix):
		s.Fields[strings.TrimPrefix(key, boolPrefix)] = SafeBool(value)
	case strings.HasPrefix(key, refsPrefix):
		name := strings.TrimPrefix(key, refsPrefix)
		ids, err := referenceIDs(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		s.Refs = append(s.Refs, ReferenceOp{Field: name, IDs: ids})
	case strings.HasPrefix(key, imagePrefix):
		name := strings.TrimPrefix(key, imagePrefix)
		url, ok := value.(string)
		if !ok || strings.TrimSpace(url) == "" {
			return fmt.Errorf("field %s: image value must be a source URL", name)
		}
		s.Imports = append(s.Imports, ImageImport{Field: name, SourceURL: strings.TrimSpace(url)})
	default:
		s.Fields[key] = value
	}
	return nil
}

// Merge shallow-merges the classified field values over the existing document.
// Update values win on key collision; new fields may be introduced.
func (s UpdateSet) Merge(existing map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(s.Fields))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range s.Fields {
		merged[k] = v
	}
	return merged
}

// SafeBool coerces a JSON value to a boolean. Only boolean true, the strings
// "true" and "1", and the number 1 count as true.
func SafeBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 1
	case float64:
		return v == 1
	case int:
		return v == 1
	default:
		return false
	}
}

// ParseDate converts a date_ payload value into a time value. Accepted inputs
// are strings in RFC 3339 (with or without sub-second precision) or plain
// YYYY-MM-DD form; anything else is a validation failure.
func ParseDate(value any) (time.Time, error) {
	text, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("date value must be a string, got %T", value)
	}
	trimmed := strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", text)
}

func referenceIDs(value any) ([]string, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("reference value must be a list of ids, got %T", value)
	}
	ids := make([]string, 0, len(list))
	for _, entry := range list {
		id, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("reference id must be a string, got %T", entry)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
