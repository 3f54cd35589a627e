package provision

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
	"github.com/niewczasm/vps-setup/vpssetup/config"
	"github.com/niewczasm/vps-setup/vpssetup/packagemanager"
	"github.com/niewczasm/vps-setup/vpssetup/runtime"
	"github.com/niewczasm/vps-setup/vpssetup/servicemanager"
	"github.com/niewczasm/vps-setup/vpssetup/sshdconfig"
	"github.com/niewczasm/vps-setup/vpssetup/sshkeys"
	"github.com/niewczasm/vps-setup/vpssetup/sudoers"
	"github.com/niewczasm/vps-setup/vpssetup/usermanager"
)

// ErrNotRoot reports that the provisioner was started without administrative
// privilege. Nothing has been touched when this is returned.
var ErrNotRoot = errors.New("must run as root")

type Provisioner struct {
	Config         config.Config
	CommandManager cm.CommandManager
	Log            logger.Logger

	users    *usermanager.LinuxUserManager
	packages *packagemanager.AptPackageManager
	services *servicemanager.LinuxServiceManager
	sudoers  *sudoers.Writer
	keys     *sshkeys.Propagator
	runtime  *runtime.Installer
	alias    *runtime.AliasInjector
	hardener *sshdconfig.Hardener

	// homeDir is resolved by the create-user step and consumed by the
	// account-scoped steps after it.
	homeDir string
}

func New(cfg config.Config, manager cm.CommandManager, log logger.Logger) *Provisioner {
	services := &servicemanager.LinuxServiceManager{CommandManager: manager}
	return &Provisioner{
		Config:         cfg,
		CommandManager: manager,
		Log:            log,
		users:          &usermanager.LinuxUserManager{CommandManager: manager},
		packages:       &packagemanager.AptPackageManager{CommandManager: manager},
		services:       services,
		sudoers:        &sudoers.Writer{CommandManager: manager},
		keys:           &sshkeys.Propagator{CommandManager: manager, Log: log},
		runtime: &runtime.Installer{
			CommandManager: manager,
			Log:            log,
			Username:       cfg.Username,
			NVMVersion:     cfg.NVMVersion,
			CLIPackage:     cfg.CLIPackage,
		},
		alias: &runtime.AliasInjector{CommandManager: manager, Log: log},
		hardener: &sshdconfig.Hardener{
			CommandManager: manager,
			Services:       services,
			Log:            log,
			ConfigPath:     cfg.SSHDConfigPath,
		},
	}
}

// Pipeline assembles all bootstrap steps in execution order.
func (p *Provisioner) Pipeline() *Pipeline {
	steps := []Step{
		{Name: "privilege-check", Run: p.privilegeCheck},
		{Name: "system-upgrade", Run: p.systemUpgrade},
	}
	if len(p.Config.ExtraPackages) > 0 {
		steps = append(steps, Step{Name: "install-packages", Run: p.installPackages})
	}
	steps = append(steps,
		Step{Name: "create-user", Run: p.createUser},
		Step{Name: "write-sudoers", Run: p.writeSudoers},
		Step{Name: "propagate-ssh-keys", Run: p.propagateSSHKeys},
		Step{Name: "install-nvm", Run: p.runtime.InstallNVM},
		Step{Name: "install-node", Run: p.runtime.InstallNodeLTS},
		Step{Name: "install-cli", Run: p.runtime.InstallCLI},
		Step{Name: "install-alias", Run: p.installAlias},
		Step{Name: "harden-sshd", Run: p.hardenSSHD},
		Step{Name: "verify", Run: p.verify},
	)
	return &Pipeline{Log: p.Log, Steps: steps}
}

func (p *Provisioner) privilegeCheck(ctx context.Context) error {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "id",
		Args:    []string{"-u"},
	})
	if err != nil {
		return fmt.Errorf("checking caller identity: %w", err)
	}
	if strings.TrimSpace(result.STDOUT) != "0" {
		return ErrNotRoot
	}
	return nil
}

func (p *Provisioner) systemUpgrade(ctx context.Context) error {
	if err := p.packages.UpdateCache(); err != nil {
		return err
	}
	return p.packages.UpgradeAll()
}

func (p *Provisioner) installPackages(ctx context.Context) error {
	for _, pkg := range p.Config.ExtraPackages {
		if err := p.packages.Install(strings.TrimSpace(pkg)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) createUser(ctx context.Context) error {
	username := p.Config.Username

	exists, err := p.users.Exists(username)
	if err != nil {
		return fmt.Errorf("checking account %s: %w", username, err)
	}
	if exists {
		p.Log.Warn("Account already exists, skipping creation", "user", username)
	} else {
		if err := p.users.AddUser(usermanager.User{
			Username: username,
			Shell:    p.Config.Shell,
		}); err != nil {
			return fmt.Errorf("creating account %s: %w", username, err)
		}
		p.Log.Info("Account created", "user", username, "shell", p.Config.Shell)
	}

	user, err := p.users.GetUser(username)
	if err != nil {
		return fmt.Errorf("resolving home directory for %s: %w", username, err)
	}
	p.homeDir = user.HomeDir
	return nil
}

func (p *Provisioner) writeSudoers(ctx context.Context) error {
	return p.sudoers.Write(ctx, p.Config.Username)
}

func (p *Provisioner) propagateSSHKeys(ctx context.Context) error {
	return p.keys.Propagate(ctx, p.Config.Username, p.homeDir)
}

func (p *Provisioner) installAlias(ctx context.Context) error {
	return p.alias.Inject(ctx, p.Config.Username, p.homeDir)
}

func (p *Provisioner) hardenSSHD(ctx context.Context) error {
	if p.Config.PasswordAuthentication == "no" {
		if _, err := p.CommandManager.Run(ctx, cm.CommandConfig{
			Command: "test",
			Args:    []string{"-f", path.Join(p.homeDir, ".ssh", "authorized_keys")},
		}); err != nil {
			p.Log.Warn("Disabling password authentication while the new account has no authorized_keys; key-based login for it will not work",
				"user", p.Config.Username)
		}
	}

	return p.hardener.Harden(ctx, []sshdconfig.Directive{
		{Key: "PasswordAuthentication", Value: p.Config.PasswordAuthentication},
		{Key: "PermitRootLogin", Value: p.Config.PermitRootLogin},
		{Key: "PubkeyAuthentication", Value: p.Config.PubkeyAuthentication},
	})
}
