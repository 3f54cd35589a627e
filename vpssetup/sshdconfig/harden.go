package sshdconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
	"github.com/niewczasm/vps-setup/vpssetup/servicemanager"
)

// ErrValidationFailed reports that sshd rejected the patched configuration.
// The original file has already been restored when this is returned.
var ErrValidationFailed = errors.New("sshd rejected the patched configuration")

const defaultConfigPath = "/etc/ssh/sshd_config"

// sshServiceNames covers Debian ("ssh") and RHEL ("sshd") unit naming.
var sshServiceNames = []string{"ssh", "sshd"}

type Hardener struct {
	CommandManager cm.CommandManager
	Services       *servicemanager.LinuxServiceManager
	Log            logger.Logger

	// ConfigPath defaults to /etc/ssh/sshd_config.
	ConfigPath string

	// Now stamps the backup filename; tests pin it.
	Now func() time.Time
}

func (h *Hardener) configPath() string {
	if h.ConfigPath != "" {
		return h.ConfigPath
	}
	return defaultConfigPath
}

func (h *Hardener) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Harden backs up the daemon configuration, applies the directives, and
// validates with sshd -t. On success the daemon is restarted with the new
// configuration; on validation failure the backup taken by this run is
// restored verbatim, the daemon is restarted with it, and
// ErrValidationFailed is returned.
func (h *Hardener) Harden(ctx context.Context, directives []Directive) error {
	configPath := h.configPath()

	current, err := h.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "cat",
		Args:    []string{configPath},
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", configPath, err)
	}

	// The backup path is captured once and reused for rollback, so rollback
	// can never target a backup from a different instant.
	backupPath := fmt.Sprintf("%s.backup.%d", configPath, h.now().Unix())
	if result, err := h.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "cp",
		Args:    []string{configPath, backupPath},
	}); err != nil {
		return fmt.Errorf("backing up %s to %s: %w: %s", configPath, backupPath, err, result.STDERR)
	}
	h.Log.Info("Backed up sshd configuration", "backup", backupPath)

	patched := PatchAll(current.STDOUT, directives)
	if result, err := h.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "tee",
		Args:    []string{configPath},
		Stdin:   patched,
	}); err != nil {
		return fmt.Errorf("writing patched %s: %w: %s", configPath, err, result.STDERR)
	}

	if result, err := h.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "sshd",
		Args:    []string{"-t"},
	}); err != nil {
		h.Log.Error("sshd -t failed, restoring previous configuration",
			"backup", backupPath, "stderr", result.STDERR)
		return h.rollback(ctx, backupPath, configPath)
	}

	if err := h.Services.RestartFirst(sshServiceNames...); err != nil {
		return fmt.Errorf("restarting SSH daemon: %w", err)
	}
	h.Log.Info("SSH daemon restarted with hardened configuration")
	return nil
}

func (h *Hardener) rollback(ctx context.Context, backupPath, configPath string) error {
	if result, err := h.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "cp",
		Args:    []string{backupPath, configPath},
	}); err != nil {
		return fmt.Errorf("restoring %s from %s: %w: %s", configPath, backupPath, err, result.STDERR)
	}
	if err := h.Services.RestartFirst(sshServiceNames...); err != nil {
		return fmt.Errorf("restarting SSH daemon after rollback: %w", err)
	}
	h.Log.Warn("Restored previous sshd configuration", "backup", backupPath)
	return ErrValidationFailed
}
