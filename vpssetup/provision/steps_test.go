package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
	"github.com/niewczasm/vps-setup/vpssetup/config"
)

// freshVPS emulates the commands the pipeline issues against a pristine
// Debian machine: root caller, no target account, no root authorized_keys.
type freshVPS struct {
	uid         string
	userCreated bool
	configs     []cm.CommandConfig
}

func (f *freshVPS) Run(ctx context.Context, c cm.CommandConfig) (cm.CommandResult, error) {
	f.configs = append(f.configs, c)

	switch c.Command {
	case "id":
		return cm.CommandResult{STDOUT: f.uid + "\n"}, nil
	case "getent":
		if f.userCreated {
			return cm.CommandResult{STDOUT: "dev:x:1001:1001::/home/dev:/bin/bash\n"}, nil
		}
		return cm.CommandResult{ExitCode: 2}, errors.New("exit status 2")
	case "useradd":
		f.userCreated = true
		return cm.CommandResult{}, nil
	case "test":
		// no authorized_keys anywhere on a fresh box
		return cm.CommandResult{ExitCode: 1}, errors.New("exit status 1")
	case "grep":
		// alias not yet present
		return cm.CommandResult{ExitCode: 1}, errors.New("exit status 1")
	case "cat":
		if c.Args[0] == "/etc/ssh/sshd_config" {
			return cm.CommandResult{STDOUT: "Port 22\nPermitRootLogin yes\n"}, nil
		}
		return cm.CommandResult{ExitCode: 1}, errors.New("exit status 1")
	}
	// apt-get, tee, chmod, cp, mkdir, chown, bash, sshd, systemctl
	return cm.CommandResult{}, nil
}

func (f *freshVPS) commandNames() []string {
	names := make([]string, 0, len(f.configs))
	for _, c := range f.configs {
		names = append(names, c.Command)
	}
	return names
}

func TestFullPipelineOnFreshVPS(t *testing.T) {
	vps := &freshVPS{uid: "0"}
	prov := New(config.Default(), vps, logger.New())
	pipeline := prov.Pipeline()

	require.NoError(t, pipeline.Run(context.Background()))

	assert.Equal(t, []string{
		"privilege-check",
		"system-upgrade",
		"create-user",
		"write-sudoers",
		"propagate-ssh-keys",
		"install-nvm",
		"install-node",
		"install-cli",
		"install-alias",
		"harden-sshd",
		"verify",
	}, pipeline.Completed)

	names := vps.commandNames()
	assert.Contains(t, names, "useradd")
	assert.Contains(t, names, "apt-get")
	assert.Contains(t, names, "sshd")

	// No mkdir: key propagation skipped, so no partial .ssh directory.
	assert.NotContains(t, names, "mkdir")
}

func TestPipelineRerunSkipsExistingAccount(t *testing.T) {
	vps := &freshVPS{uid: "0", userCreated: true}
	prov := New(config.Default(), vps, logger.New())

	require.NoError(t, prov.Pipeline().Run(context.Background()))
	assert.NotContains(t, vps.commandNames(), "useradd")
}

func TestPrivilegeCheckRejectsNonRoot(t *testing.T) {
	vps := &freshVPS{uid: "1000"}
	prov := New(config.Default(), vps, logger.New())

	err := prov.Pipeline().Run(context.Background())
	require.ErrorIs(t, err, ErrNotRoot)

	// Zero mutations: the identity probe is the only command issued.
	assert.Equal(t, []string{"id"}, vps.commandNames())
}

func TestExtraPackagesStep(t *testing.T) {
	cfg := config.Default()
	cfg.ExtraPackages = []string{"htop", "git"}

	vps := &freshVPS{uid: "0"}
	prov := New(cfg, vps, logger.New())
	pipeline := prov.Pipeline()

	require.NoError(t, pipeline.Run(context.Background()))
	assert.Contains(t, pipeline.Completed, "install-packages")

	var installed []string
	for _, c := range vps.configs {
		if c.Command == "apt-get" && len(c.Args) > 0 && c.Args[0] == "install" {
			installed = append(installed, c.Args[len(c.Args)-1])
		}
	}
	assert.Equal(t, []string{"htop", "git"}, installed)
}

func TestHardenStepAppliesConfiguredDirectives(t *testing.T) {
	vps := &freshVPS{uid: "0", userCreated: true}
	prov := New(config.Default(), vps, logger.New())

	require.NoError(t, prov.Pipeline().Run(context.Background()))

	var patched string
	for _, c := range vps.configs {
		if c.Command == "tee" && c.Args[0] == "/etc/ssh/sshd_config" {
			patched = c.Stdin
		}
	}
	require.NotEmpty(t, patched, "hardening must rewrite sshd_config")
	assert.Contains(t, patched, "PermitRootLogin no")
	assert.Contains(t, patched, "PasswordAuthentication no")
	assert.Contains(t, patched, "PubkeyAuthentication yes")
	assert.Equal(t, 1, strings.Count(patched, "PermitRootLogin"))
}
