// Package sshdconfig patches, validates, and (on validation failure) rolls
// back the SSH daemon configuration.
package sshdconfig

import (
	"strings"
)

// Directive is a single key-value line in sshd_config.
type Directive struct {
	Key   string
	Value string
}

// Line renders the directive as it appears in the file.
func (d Directive) Line() string {
	return d.Key + " " + d.Value
}

// matches reports whether the line sets (or comments out) the directive key.
// sshd treats keywords case-insensitively.
func (d Directive) matches(line string) bool {
	trimmed := strings.TrimSpace(line)
	for strings.HasPrefix(trimmed, "#") {
		trimmed = strings.TrimSpace(trimmed[1:])
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(fields[0], d.Key)
}

// PatchContent sets the directive in the given config content. The first
// matching line (active or commented) is replaced in place; any later
// matches are dropped so exactly one line carries the directive. With no
// match, the directive is appended.
func PatchContent(content string, d Directive) string {
	trailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		if d.matches(line) {
			if !replaced {
				out = append(out, d.Line())
				replaced = true
			}
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, d.Line())
		trailingNewline = true
	}

	result := strings.Join(out, "\n")
	if trailingNewline {
		result += "\n"
	}
	return result
}

// PatchAll applies the directives in order.
func PatchAll(content string, directives []Directive) string {
	for _, d := range directives {
		content = PatchContent(content, d)
	}
	return content
}
