package packagemanager

import (
	"context"
	"fmt"

	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// dpkg keeps locally modified conffiles instead of prompting.
var dpkgOptions = []string{
	"-o", "Dpkg::Options::=--force-confdef",
	"-o", "Dpkg::Options::=--force-confold",
}

type AptPackageManager struct {
	CommandManager cm.CommandManager
}

func (apm *AptPackageManager) UpdateCache() error {
	result, err := apm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "apt-get",
		Env:     aptEnv,
		Args:    []string{"update"},
	})
	if err != nil {
		return fmt.Errorf("apt-get update failed: %w: %s", err, result.STDERR)
	}
	return nil
}

func (apm *AptPackageManager) UpgradeAll() error {
	args := append([]string{"dist-upgrade", "-y"}, dpkgOptions...)
	result, err := apm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "apt-get",
		Env:     aptEnv,
		Args:    args,
	})
	if err != nil {
		return fmt.Errorf("apt-get dist-upgrade failed: %w: %s", err, result.STDERR)
	}
	return nil
}

func (apm *AptPackageManager) Install(pkg string) error {
	args := append([]string{"install", "-y"}, dpkgOptions...)
	args = append(args, pkg)
	result, err := apm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "apt-get",
		Env:     aptEnv,
		Args:    args,
	})
	if err != nil {
		return fmt.Errorf("apt-get install %s failed: %w: %s", pkg, err, result.STDERR)
	}
	return nil
}
