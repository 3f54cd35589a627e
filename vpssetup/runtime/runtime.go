// Package runtime installs the Node toolchain and CLI tool into the target
// account: nvm (pinned installer), the current LTS runtime, and a global npm
// package. Everything runs as that account in a login shell so nvm's shell
// integration is picked up.
package runtime

import (
	"context"
	"fmt"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

// sourceNVM loads nvm into a fresh shell; the installer only patches future
// login profiles.
const sourceNVM = `export NVM_DIR="$HOME/.nvm"; [ -s "$NVM_DIR/nvm.sh" ] && . "$NVM_DIR/nvm.sh"`

type Installer struct {
	CommandManager cm.CommandManager
	Log            logger.Logger

	Username   string
	NVMVersion string
	CLIPackage string
}

func (i *Installer) runShell(ctx context.Context, script string) (cm.CommandResult, error) {
	return i.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "bash",
		Args:    []string{"-lc", script},
		RunAs:   i.Username,
	})
}

// InstallNVM fetches and executes the pinned nvm installer.
func (i *Installer) InstallNVM(ctx context.Context) error {
	url := fmt.Sprintf("https://raw.githubusercontent.com/nvm-sh/nvm/%s/install.sh", i.NVMVersion)
	i.Log.Info("Installing nvm", "version", i.NVMVersion, "user", i.Username)

	result, err := i.runShell(ctx, fmt.Sprintf("curl -o- %s | bash", url))
	if err != nil {
		return fmt.Errorf("nvm %s install failed: %w: %s", i.NVMVersion, err, result.STDERR)
	}
	return nil
}

// InstallNodeLTS installs the current LTS release and makes it the default
// for future sessions.
func (i *Installer) InstallNodeLTS(ctx context.Context) error {
	i.Log.Info("Installing Node LTS", "user", i.Username)

	script := sourceNVM + `; nvm install --lts && nvm alias default 'lts/*'`
	result, err := i.runShell(ctx, script)
	if err != nil {
		return fmt.Errorf("node LTS install failed: %w: %s", err, result.STDERR)
	}
	return nil
}

// InstallCLI installs the configured package globally with npm. The version
// is whatever the registry resolves at run time unless the package spec pins
// one.
func (i *Installer) InstallCLI(ctx context.Context) error {
	i.Log.Info("Installing CLI tool", "package", i.CLIPackage, "user", i.Username)

	script := sourceNVM + "; npm install -g " + i.CLIPackage
	result, err := i.runShell(ctx, script)
	if err != nil {
		return fmt.Errorf("npm install -g %s failed: %w: %s", i.CLIPackage, err, result.STDERR)
	}
	return nil
}
