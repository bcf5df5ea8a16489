package model

import (
	"encoding/json"
	"fmt"
)

// TypeKey is the attribute holding an element's type discriminator.
const TypeKey = "@type"

// AttrMap flattens an element into its attribute map as persisted in a
// metadata group. The id is carried by the group name, not the map; empty
// fields are elided entirely so they are never written.
func AttrMap(e Element) (map[string]any, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]any)
	if err := json.Unmarshal(b, &attrs); err != nil {
		return nil, err
	}
	delete(attrs, "id")
	for k, v := range attrs {
		if isEmptyValue(v) {
			delete(attrs, k)
		}
	}
	attrs[TypeKey] = e.TypeTag()
	return attrs, nil
}

// FromAttrs rebuilds a typed element from a stored attribute map and its id.
// The map's "@type" attribute selects the variant; records persisted without
// one are data entities (the only ones ever written that way by early
// versions).
func FromAttrs(id string, attrs map[string]any) (Element, error) {
	tag, _ := attrs[TypeKey].(string)
	if tag == "" {
		tag = "DataEntity"
	}
	e, err := New(tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	clean := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		if k == TypeKey {
			continue
		}
		clean[k] = v
	}
	clean["id"] = id
	b, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("decode %s attributes: %w", tag, err)
	}
	return e, nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
