// Package sudoers writes the per-user privilege escalation policy.
package sudoers

import (
	"context"
	"fmt"
	"path"

	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

const fragmentDir = "/etc/sudoers.d"

// FragmentMode is the only mode sudo will trust for files under sudoers.d.
const FragmentMode = "0440"

type Writer struct {
	CommandManager cm.CommandManager
}

// Fragment returns the policy line granting passwordless full escalation.
func Fragment(username string) string {
	return fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", username)
}

// FragmentPath returns the sudoers.d path for the given account.
func FragmentPath(username string) string {
	return path.Join(fragmentDir, username)
}

// Write overwrites the account's sudoers fragment and locks its mode down.
func (w *Writer) Write(ctx context.Context, username string) error {
	target := FragmentPath(username)

	result, err := w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "tee",
		Args:    []string{target},
		Stdin:   Fragment(username),
	})
	if err != nil {
		return fmt.Errorf("writing sudoers fragment %s: %w: %s", target, err, result.STDERR)
	}

	result, err = w.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "chmod",
		Args:    []string{FragmentMode, target},
	})
	if err != nil {
		return fmt.Errorf("setting mode on %s: %w: %s", target, err, result.STDERR)
	}
	return nil
}
