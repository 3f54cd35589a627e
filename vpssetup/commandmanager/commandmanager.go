package commandmanager

import (
	"context"
	"time"
)

// CommandConfig describes a single command invocation.
type CommandConfig struct {
	Command string
	Args    []string

	// RunAs switches to the named account with sudo -u before executing.
	// Empty means run as the calling account.
	RunAs string

	// Sudo escalates with sudo -S, feeding SudoPassword on stdin.
	Sudo bool

	// Env entries (KEY=VALUE) prepended to the command via env(1) so they
	// survive a sudo boundary.
	Env []string

	Stdin string
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Credentials holds the account details used for remote execution and sudo.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

// CommandManager executes commands on the host being provisioned, either
// locally or over SSH.
type CommandManager interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}
