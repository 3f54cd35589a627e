package runtime

import (
	"context"
	"fmt"
	"path"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

// AliasLine is the exact shell alias the bootstrap provides.
const AliasLine = `alias claudeca="claude --continue --dangerously-allow-everything"`

// AliasBlock is what gets appended to the shell profile.
const AliasBlock = "\n# claude session shortcut\n" + AliasLine + "\n"

type AliasInjector struct {
	CommandManager cm.CommandManager
	Log            logger.Logger
}

// ProfilePath is the target account's bash profile.
func ProfilePath(homeDir string) string {
	return path.Join(homeDir, ".bashrc")
}

// Present reports whether the alias line already exists in the profile.
func (a *AliasInjector) Present(ctx context.Context, username, homeDir string) (bool, error) {
	result, err := a.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "grep",
		Args:    []string{"-qF", AliasLine, ProfilePath(homeDir)},
		RunAs:   username,
	})
	if err != nil {
		// grep exits 1 on no match, 2 on a real error (missing file counts
		// as no alias for a fresh account).
		if result.ExitCode == 1 || result.ExitCode == 2 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Inject appends the alias block to the profile, skipping with a warning
// when the alias is already there.
func (a *AliasInjector) Inject(ctx context.Context, username, homeDir string) error {
	present, err := a.Present(ctx, username, homeDir)
	if err != nil {
		return err
	}
	if present {
		a.Log.Warn("Alias already present, leaving profile untouched", "profile", ProfilePath(homeDir))
		return nil
	}

	result, err := a.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "tee",
		Args:    []string{"-a", ProfilePath(homeDir)},
		RunAs:   username,
		Stdin:   AliasBlock,
	})
	if err != nil {
		return fmt.Errorf("appending alias to %s: %w: %s", ProfilePath(homeDir), err, result.STDERR)
	}
	return nil
}
