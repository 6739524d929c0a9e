// internal/node/allowed.go
package node

import (
	"strings"
)

// ParseAllowed parses `get_allowed` output. One entry per line: the first
// field is the address and the remainder the alias; text after the first
// '#' is a comment; blank lines are skipped.
func ParseAllowed(output string) []AllowedAddress {
	var entries []AllowedAddress
	for _, line := range strings.Split(output, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		entry := AllowedAddress{Address: fields[0]}
		if len(fields) > 1 {
			entry.Alias = strings.Join(fields[1:], " ")
		}
		entries = append(entries, entry)
	}
	return entries
}

// AllowedMap is the address -> alias view of an allow-list.
func AllowedMap(entries []AllowedAddress) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Address] = e.Alias
	}
	return m
}

// FormatAllowedBatch renders entries as the stdin payload of
// `update_allowed_batch`: one "address alias" pair per line, terminated by
// a newline.
func FormatAllowedBatch(entries []AllowedAddress) []byte {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Address)
		b.WriteString(" ")
		b.WriteString(e.Alias)
		b.WriteString("\n")
	}
	return []byte(b.String())
}
