package commandmanager

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SSHDialer dials an SSH connection. It exists so tests can substitute the
// network layer.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

type UnixCommandManager struct {
	Hostname  string
	SSHClient SSHDialer
	Credentials
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.isLocal() {
		slog.Debug("Running local command", "hostname", u.Hostname, "command", config.Command)
		return u.RunLocal(ctx, config)
	}
	slog.Debug("Running remote command", "hostname", u.Hostname, "command", config.Command)
	return u.RunRemote(ctx, config)
}

func (u *UnixCommandManager) RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	argv := buildArgv(config)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	if config.Sudo {
		cmd.Stdin = strings.NewReader(u.SudoPassword + "\n")
	} else if config.Stdin != "" {
		cmd.Stdin = strings.NewReader(config.Stdin)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := CommandResult{
		Command:   strings.Join(argv, " "),
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	if strings.Contains(result.STDERR, "incorrect password") {
		return result, errors.New("sudo: incorrect password provided")
	}
	if strings.Contains(result.STDERR, "is not in the sudoers file") {
		return result, errors.New("sudo: user is not in the sudoers file")
	}

	return result, err
}

func (u *UnixCommandManager) RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.SSHClient == nil {
		return CommandResult{}, errors.New("SSHClient is not initialized")
	}

	sshConfig, err := u.getSSHConfig()
	if err != nil {
		return CommandResult{}, err
	}

	var dialTimeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	} else {
		dialTimeout = 15 * time.Minute
	}

	client, err := u.SSHClient.Dial("tcp", u.Hostname+":22", sshConfig, dialTimeout)
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, err
	}
	defer session.Close()

	argv := buildArgv(config)
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	cmdStr := strings.Join(quoted, " ")

	if config.Sudo {
		session.Stdin = strings.NewReader(u.SudoPassword + "\n")
	} else if config.Stdin != "" {
		session.Stdin = strings.NewReader(config.Stdin)
	}

	start := time.Now()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmdStr)
	}()

	select {
	case runErr := <-done:
		result := CommandResult{
			Command:   cmdStr,
			STDOUT:    stdout.String(),
			STDERR:    stderr.String(),
			ExitCode:  getRemoteExitCode(runErr),
			Duration:  time.Since(start),
			Timestamp: start,
		}
		if runErr != nil {
			slog.Error("Failed to execute command over SSH", "command", cmdStr, "error", runErr, "stderr", result.STDERR)
		}
		return result, runErr

	case <-ctx.Done():
		slog.Error("Command over SSH timed out", "command", cmdStr)
		return CommandResult{}, ctx.Err()
	}
}

func (u *UnixCommandManager) getSSHConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if u.Password != "" {
		slog.Debug("Using password authentication", "hostname", u.Hostname)
		authMethod = ssh.Password(u.Password)
	} else {
		slog.Debug("Using public key authentication", "hostname", u.Hostname)
		keys, err := loadSigners(u.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            u.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

// loadSigners collects private keys either from ~/.ssh (when a passphrase is
// given) or from the running SSH agent.
func loadSigners(keyPassphrase string) ([]ssh.Signer, error) {
	if keyPassphrase == "" {
		socket := os.Getenv("SSH_AUTH_SOCK")
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil, errors.New("SSH agent not running")
		}
		defer conn.Close()

		keys, err := agent.NewClient(conn).Signers()
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, errors.New("no keys found in SSH agent")
		}
		return keys, nil
	}

	files, err := filepath.Glob(os.Getenv("HOME") + "/.ssh/id_*")
	if err != nil {
		return nil, err
	}

	var signers []ssh.Signer
	for _, file := range files {
		if strings.HasSuffix(file, ".pub") {
			continue
		}
		key, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKeyWithPassphrase(key, []byte(keyPassphrase))
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) == 0 {
		return nil, errors.New("no valid SSH keys found")
	}
	return signers, nil
}

// buildArgv expands RunAs, Sudo, and Env into a flat argument vector.
// Env entries go through env(1) so they survive the sudo boundary.
func buildArgv(config CommandConfig) []string {
	argv := []string{}
	switch {
	case config.RunAs != "":
		argv = append(argv, "sudo", "-H", "-u", config.RunAs, "--")
	case config.Sudo:
		argv = append(argv, "sudo", "-S", "--")
	}
	if len(config.Env) > 0 {
		argv = append(argv, "env")
		argv = append(argv, config.Env...)
	}
	argv = append(argv, config.Command)
	argv = append(argv, config.Args...)
	return argv
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]#~%!{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (u *UnixCommandManager) isLocal() bool {
	return u.Hostname == "" || u.Hostname == "localhost" || u.Hostname == "127.0.0.1"
}

func getExitCode(err error) int {
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			status := exitError.Sys().(syscall.WaitStatus)
			return status.ExitStatus()
		}
	}
	return 0
}

func getRemoteExitCode(err error) int {
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus()
		}
	}
	return 0
}
