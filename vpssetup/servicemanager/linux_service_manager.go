package servicemanager

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

type LinuxServiceManager struct {
	CommandManager cm.CommandManager
}

func (lsm *LinuxServiceManager) RestartService(serviceName string) error {
	result, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"restart", serviceName},
	})
	if err != nil {
		return fmt.Errorf("systemctl restart %s failed: %w: %s", serviceName, err, result.STDERR)
	}
	return nil
}

// RestartFirst restarts the first unit name systemd knows. Debian ships the
// SSH daemon as "ssh", RHEL as "sshd".
func (lsm *LinuxServiceManager) RestartFirst(serviceNames ...string) error {
	var lastErr error
	for _, name := range serviceNames {
		if lastErr = lsm.RestartService(name); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (lsm *LinuxServiceManager) CheckServiceStatus(serviceName string) (ServiceStatus, error) {
	output, err := lsm.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "systemctl",
		Args:    []string{"is-active", serviceName},
	})

	switch strings.TrimSpace(output.STDOUT) {
	case "active":
		return Active, nil
	case "inactive":
		return Inactive, nil
	case "failed":
		return Failed, nil
	default:
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("unrecognized unit state %q", strings.TrimSpace(output.STDOUT))
	}
}
