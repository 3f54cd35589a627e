// Package sshkeys propagates the administrative account's authorized_keys
// to the freshly provisioned account.
package sshkeys

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

const rootAuthorizedKeys = "/root/.ssh/authorized_keys"

type Propagator struct {
	CommandManager cm.CommandManager
	Log            logger.Logger

	// SourcePath defaults to the root account's authorized_keys.
	SourcePath string
}

// KeyInfo describes one parsed authorized_keys entry.
type KeyInfo struct {
	Type        string
	Fingerprint string
	Comment     string
}

// ParseAuthorizedKeys inspects authorized_keys content line by line. Invalid
// lines are reported, not fatal: sshd itself skips lines it cannot parse.
func ParseAuthorizedKeys(content string) (keys []KeyInfo, bad []string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		pub, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(trimmed))
		if err != nil {
			bad = append(bad, trimmed)
			continue
		}
		keys = append(keys, KeyInfo{
			Type:        pub.Type(),
			Fingerprint: ssh.FingerprintSHA256(pub),
			Comment:     comment,
		})
	}
	return keys, bad
}

func (p *Propagator) sourcePath() string {
	if p.SourcePath != "" {
		return p.SourcePath
	}
	return rootAuthorizedKeys
}

// Propagate copies the administrative authorized_keys into the target
// account's ~/.ssh with owner-only permissions. A missing source file is a
// warning, not an error, and leaves no partial .ssh directory behind.
func (p *Propagator) Propagate(ctx context.Context, username, homeDir string) error {
	source := p.sourcePath()

	if _, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "test",
		Args:    []string{"-f", source},
	}); err != nil {
		p.Log.Warn("No authorized_keys to propagate; the new account has no key-based login path", "source", source)
		return nil
	}

	content, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "cat",
		Args:    []string{source},
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}

	keys, bad := ParseAuthorizedKeys(content.STDOUT)
	for _, line := range bad {
		p.Log.Warn("Skipping unparseable authorized_keys entry", "line", line)
	}
	for _, k := range keys {
		p.Log.Info("Propagating key", "type", k.Type, "fingerprint", k.Fingerprint, "comment", k.Comment)
	}

	sshDir := path.Join(homeDir, ".ssh")
	target := path.Join(sshDir, "authorized_keys")

	// Created as the target account so directory ownership comes out right.
	if _, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "mkdir",
		Args:    []string{"-p", sshDir},
		RunAs:   username,
	}); err != nil {
		return fmt.Errorf("creating %s: %w", sshDir, err)
	}

	steps := []cm.CommandConfig{
		{Command: "cp", Args: []string{source, target}},
		{Command: "chown", Args: []string{"-R", username + ":" + username, sshDir}},
		{Command: "chmod", Args: []string{"700", sshDir}},
		{Command: "chmod", Args: []string{"600", target}},
	}
	for _, step := range steps {
		if result, err := p.CommandManager.Run(ctx, step); err != nil {
			return fmt.Errorf("%s %s: %w: %s", step.Command, strings.Join(step.Args, " "), err, result.STDERR)
		}
	}
	return nil
}
