package usermanager

import (
	"context"
	"errors"
	"strconv"
	"strings"

	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
)

type LinuxUserManager struct {
	CommandManager cm.CommandManager
}

func (l *LinuxUserManager) GetUser(username string) (User, error) {
	output, err := l.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "getent",
		Args:    []string{"passwd", username},
	})
	if err != nil {
		return User{}, err
	}

	parts := strings.Split(strings.TrimSpace(output.STDOUT), ":")
	if len(parts) < 7 {
		return User{}, errors.New("unexpected getent format")
	}

	uid, _ := strconv.Atoi(parts[2])
	gid, _ := strconv.Atoi(parts[3])

	return User{
		Username: parts[0],
		UID:      uid,
		GID:      gid,
		Comment:  parts[4],
		HomeDir:  parts[5],
		Shell:    parts[6],
	}, nil
}

// Exists distinguishes "no such account" (getent exits 2) from lookup
// failures.
func (l *LinuxUserManager) Exists(username string) (bool, error) {
	output, err := l.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "getent",
		Args:    []string{"passwd", username},
	})
	if err != nil {
		if output.ExitCode == 2 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *LinuxUserManager) AddUser(user User) error {
	args := []string{"-m"}
	if user.Shell != "" {
		args = append(args, "-s", user.Shell)
	}
	if user.Comment != "" {
		args = append(args, "-c", user.Comment)
	}
	args = append(args, user.Username)

	_, err := l.CommandManager.Run(context.TODO(), cm.CommandConfig{
		Command: "useradd",
		Args:    args,
	})
	return err
}
