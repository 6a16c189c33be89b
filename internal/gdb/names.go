package gdb

import "strings"

// SchemaPrefix returns the schema prefix (database.owner.) of a full object name,
// including the trailing dot. Returns "" when the name has no prefix.
func SchemaPrefix(full string) string {
	i := strings.LastIndex(full, ".")
	if i == -1 {
		return ""
	}
	return full[:i+1]
}

// BaseName returns the object name without its schema prefix.
func BaseName(full string) string {
	i := strings.LastIndex(full, ".")
	if i == -1 {
		return full
	}
	return full[i+1:]
}

// IndexFold returns the index of the first list item equal to s, ignoring case, or -1.
func IndexFold(list []string, s string) int {
	for i, item := range list {
		if strings.EqualFold(item, s) {
			return i
		}
	}
	return -1
}

// FindByBaseName returns the first full name whose base name equals name, ignoring case.
func FindByBaseName(fullNames []string, name string) (string, bool) {
	for _, full := range fullNames {
		if strings.EqualFold(BaseName(full), name) {
			return full, true
		}
	}
	return "", false
}
