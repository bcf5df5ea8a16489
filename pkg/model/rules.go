package model

import "fmt"

// The has-part schema fragment used by the core, as a compiled-in table:
// each has-part attribute accepts children of exactly one type, and each
// record type exposes a fixed set of has-part attributes.

// hasPartTargets maps a has-part attribute to the type tag of its permitted
// children.
var hasPartTargets = map[string]string{
	"has_assay":     "Assay",
	"has_sample":    "Sample",
	"has_data":      "DataEntity",
	"has_reference": "ReferenceGenome",
	"has_sequence":  "ReferenceSequence",
}

// hasPartSlots maps a record type tag to the has-part attributes it exposes.
var hasPartSlots = map[string][]string{
	"MODO":            {"has_assay"},
	"Assay":           {"has_sample", "has_data"},
	"DataEntity":      {"has_reference"},
	"ReferenceGenome": {"has_sequence"},
}

// HasPartAttribute returns the has-part attribute accepting children of the
// given type tag, or ok=false if the type cannot be contained by anything.
func HasPartAttribute(childTag string) (string, bool) {
	for slot, target := range hasPartTargets {
		if target == childTag {
			return slot, true
		}
	}
	return "", false
}

// HasPartTarget returns the container type of the children accepted by slot.
func HasPartTarget(slot string) (ElementType, bool) {
	tag, ok := hasPartTargets[slot]
	if !ok {
		return "", false
	}
	return KindFromTag(tag)
}

// IsHasPartAttribute reports whether name is a has-part attribute.
func IsHasPartAttribute(name string) bool {
	_, ok := hasPartTargets[name]
	return ok
}

// CanContain verifies that a parent of type parentTag exposes a has-part
// attribute accepting children of type childTag, returning that attribute.
func CanContain(parentTag, childTag string) (string, error) {
	slot, ok := HasPartAttribute(childTag)
	if !ok {
		return "", fmt.Errorf("%w: %s cannot be part of anything", ErrInvalidRelationship, childTag)
	}
	for _, s := range hasPartSlots[parentTag] {
		if s == slot {
			return slot, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no attribute %s for %s children", ErrInvalidRelationship, parentTag, slot, childTag)
}

// AppendHasPart returns the updated value of a has-part attribute after
// adding childID. A missing value starts a new list; a legacy scalar value
// is converted to a single-element list first.
func AppendHasPart(current any, childID string) []string {
	var ids []string
	switch v := current.(type) {
	case nil:
	case string:
		ids = []string{v}
	case []string:
		ids = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
	}
	return append(ids, childID)
}

// NormalizeHasPartIDs rewrites every id held by the element's has-part
// attributes into the type-prefixed form, inferring the type from the
// attribute's permitted target.
func NormalizeHasPartIDs(e Element) {
	switch v := e.(type) {
	case *MODO:
		v.HasAssay = normalizeIDs(v.HasAssay, TypeAssay)
	case *Assay:
		v.HasSample = normalizeIDs(v.HasSample, TypeSample)
		v.HasData = normalizeIDs(v.HasData, TypeData)
	case *DataEntity:
		v.HasReference = normalizeIDs(v.HasReference, TypeReference)
	case *ReferenceGenome:
		v.HasSequence = normalizeIDs(v.HasSequence, TypeSequence)
	}
}

func normalizeIDs(ids []string, kind ElementType) []string {
	if len(ids) == 0 {
		return ids
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = FullID(kind, id)
	}
	return out
}
