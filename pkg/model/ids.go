package model

import "strings"

// IsFullID reports whether id carries one of the element type prefixes,
// optionally preceded by a path separator.
func IsFullID(id string) bool {
	for _, t := range ElementTypes() {
		prefix := string(t) + "/"
		if strings.HasPrefix(id, prefix) || strings.HasPrefix(id, "/"+prefix) {
			return true
		}
	}
	return false
}

// FullID returns the type-prefixed form of a local id. Ids that already
// carry a prefix are returned unchanged.
func FullID(kind ElementType, id string) string {
	if IsFullID(id) {
		return id
	}
	return string(kind) + "/" + id
}

// LocalID strips any type prefix from an id.
func LocalID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// SanitizeID rewrites an id into a legal group name. Group names never
// contain a path separator.
func SanitizeID(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}
