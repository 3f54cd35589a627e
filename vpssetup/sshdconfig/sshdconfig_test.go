package sshdconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func countLines(content, substr string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == substr {
			n++
		}
	}
	return n
}

func TestPatchContent(t *testing.T) {
	permitRootLogin := Directive{Key: "PermitRootLogin", Value: "no"}

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "replaces existing value in place",
			content: "Port 22\nPermitRootLogin yes\nUsePAM yes\n",
			want:    "Port 22\nPermitRootLogin no\nUsePAM yes\n",
		},
		{
			name:    "uncomments commented directive",
			content: "Port 22\n#PermitRootLogin prohibit-password\n",
			want:    "Port 22\nPermitRootLogin no\n",
		},
		{
			name:    "appends when missing",
			content: "Port 22\n",
			want:    "Port 22\nPermitRootLogin no\n",
		},
		{
			name:    "appends to file without trailing newline",
			content: "Port 22",
			want:    "Port 22\nPermitRootLogin no\n",
		},
		{
			name:    "case-insensitive keyword match",
			content: "permitrootlogin yes\n",
			want:    "PermitRootLogin no\n",
		},
		{
			name:    "collapses duplicates to one line",
			content: "PermitRootLogin yes\nPort 22\n#PermitRootLogin no\n",
			want:    "PermitRootLogin no\nPort 22\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PatchContent(tc.content, permitRootLogin)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 1, countLines(got, "PermitRootLogin no"))
		})
	}
}

func TestPatchContentDoesNotTouchUnrelatedKeys(t *testing.T) {
	content := "PermitRootLoginFoo yes\nPermitTunnel no\n"
	got := PatchContent(content, Directive{Key: "PermitRootLogin", Value: "no"})
	assert.Contains(t, got, "PermitRootLoginFoo yes")
	assert.Contains(t, got, "PermitTunnel no")
	assert.Equal(t, 1, countLines(got, "PermitRootLogin no"))
}

func TestPatchAll(t *testing.T) {
	content := "Port 22\nPasswordAuthentication yes\nPermitRootLogin yes\n"
	directives := []Directive{
		{Key: "PasswordAuthentication", Value: "no"},
		{Key: "PermitRootLogin", Value: "no"},
		{Key: "PubkeyAuthentication", Value: "yes"},
	}

	got := PatchAll(content, directives)

	assert.Equal(t, 1, countLines(got, "PasswordAuthentication no"))
	assert.Equal(t, 1, countLines(got, "PermitRootLogin no"))
	assert.Equal(t, 1, countLines(got, "PubkeyAuthentication yes"))
	assert.Contains(t, got, "Port 22")
}
