package sshdconfig

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
	"github.com/niewczasm/vps-setup/vpssetup/servicemanager"
)

// fsCommandManager emulates the handful of file and service commands the
// hardening flow issues against an in-memory filesystem.
type fsCommandManager struct {
	files       map[string]string
	sshdtFails  bool
	restarted   []string
	failRestart bool
}

func (f *fsCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	switch config.Command {
	case "cat":
		content, ok := f.files[config.Args[0]]
		if !ok {
			return cm.CommandResult{ExitCode: 1, STDERR: "No such file"}, errors.New("exit status 1")
		}
		return cm.CommandResult{STDOUT: content}, nil
	case "cp":
		content, ok := f.files[config.Args[0]]
		if !ok {
			return cm.CommandResult{ExitCode: 1, STDERR: "No such file"}, errors.New("exit status 1")
		}
		f.files[config.Args[1]] = content
		return cm.CommandResult{}, nil
	case "tee":
		f.files[config.Args[0]] = config.Stdin
		return cm.CommandResult{STDOUT: config.Stdin}, nil
	case "sshd":
		if f.sshdtFails {
			return cm.CommandResult{ExitCode: 255, STDERR: "Bad configuration option"}, errors.New("exit status 255")
		}
		return cm.CommandResult{}, nil
	case "systemctl":
		if f.failRestart {
			return cm.CommandResult{ExitCode: 1}, errors.New("exit status 1")
		}
		f.restarted = append(f.restarted, config.Args[1])
		return cm.CommandResult{}, nil
	}
	return cm.CommandResult{}, fmt.Errorf("unexpected command %q", config.Command)
}

func newHardener(fs *fsCommandManager) *Hardener {
	return &Hardener{
		CommandManager: fs,
		Services:       &servicemanager.LinuxServiceManager{CommandManager: fs},
		Log:            logger.New(),
		ConfigPath:     "/etc/ssh/sshd_config",
		Now:            func() time.Time { return time.Unix(1700000000, 0) },
	}
}

var hardeningDirectives = []Directive{
	{Key: "PasswordAuthentication", Value: "no"},
	{Key: "PermitRootLogin", Value: "no"},
	{Key: "PubkeyAuthentication", Value: "yes"},
}

func TestHardenSuccess(t *testing.T) {
	fs := &fsCommandManager{files: map[string]string{
		"/etc/ssh/sshd_config": "Port 22\nPermitRootLogin yes\n",
	}}
	h := newHardener(fs)

	require.NoError(t, h.Harden(context.Background(), hardeningDirectives))

	live := fs.files["/etc/ssh/sshd_config"]
	assert.Equal(t, 1, countLines(live, "PermitRootLogin no"))
	assert.Equal(t, 1, countLines(live, "PasswordAuthentication no"))
	assert.Equal(t, 1, countLines(live, "PubkeyAuthentication yes"))

	// Backup of the original content exists at the captured path.
	backup := fs.files["/etc/ssh/sshd_config.backup.1700000000"]
	assert.Equal(t, "Port 22\nPermitRootLogin yes\n", backup)

	assert.Equal(t, []string{"ssh"}, fs.restarted)
}

func TestHardenRollbackRestoresVerbatim(t *testing.T) {
	original := "Port 22\nPermitRootLogin yes\n# local note\n"
	fs := &fsCommandManager{
		files:      map[string]string{"/etc/ssh/sshd_config": original},
		sshdtFails: true,
	}
	h := newHardener(fs)

	err := h.Harden(context.Background(), hardeningDirectives)
	require.ErrorIs(t, err, ErrValidationFailed)

	// Rollback fidelity: live config is byte-identical to pre-patch content.
	assert.Equal(t, original, fs.files["/etc/ssh/sshd_config"])

	// Daemon was restarted with the restored configuration.
	assert.Equal(t, []string{"ssh"}, fs.restarted)
}

func TestHardenMissingConfig(t *testing.T) {
	fs := &fsCommandManager{files: map[string]string{}}
	h := newHardener(fs)

	err := h.Harden(context.Background(), hardeningDirectives)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidationFailed)
}

func TestHardenRestartFailure(t *testing.T) {
	fs := &fsCommandManager{
		files:       map[string]string{"/etc/ssh/sshd_config": "Port 22\n"},
		failRestart: true,
	}
	h := newHardener(fs)

	err := h.Harden(context.Background(), hardeningDirectives)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restarting SSH daemon")
}
