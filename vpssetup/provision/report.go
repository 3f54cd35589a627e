package provision

import (
	"context"
	"strings"

	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

// verify prints what ended up on the machine. Informational only: probe
// failures become "not found" entries, never a pipeline failure.
func (p *Provisioner) verify(ctx context.Context) error {
	probe := func(script string) string {
		result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
			Command: "bash",
			Args:    []string{"-lc", `export NVM_DIR="$HOME/.nvm"; [ -s "$NVM_DIR/nvm.sh" ] && . "$NVM_DIR/nvm.sh"; ` + script},
			RunAs:   p.Config.Username,
		})
		if err != nil || strings.TrimSpace(result.STDOUT) == "" {
			return "not found"
		}
		return strings.TrimSpace(result.STDOUT)
	}

	p.Log.Info("verification", "identity", probe("whoami"))
	p.Log.Info("verification", "node", probe("node --version"))
	p.Log.Info("verification", "npm", probe("npm --version"))
	p.Log.Info("verification", "cli", probe("command -v claude"))

	aliasPresent, err := p.alias.Present(ctx, p.Config.Username, p.homeDir)
	if err != nil {
		aliasPresent = false
	}
	p.Log.Info("verification", "alias_installed", aliasPresent)

	return nil
}
