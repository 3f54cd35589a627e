// Package config holds the provisioning parameters. The built-in defaults
// reproduce the one-shot bootstrap exactly; an optional INI file overrides
// individual values.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

type Config struct {
	// Target account to provision.
	Username string
	Shell    string

	// Extra apt packages installed after the system upgrade.
	ExtraPackages []string

	// Runtime manager and CLI tool.
	NVMVersion string
	CLIPackage string

	// SSH daemon hardening.
	SSHDConfigPath         string
	PermitRootLogin        string
	PasswordAuthentication string
	PubkeyAuthentication   string
}

func Default() Config {
	return Config{
		Username:               "dev",
		Shell:                  "/bin/bash",
		NVMVersion:             "v0.40.1",
		CLIPackage:             "@anthropic-ai/claude-code",
		SSHDConfigPath:         "/etc/ssh/sshd_config",
		PermitRootLogin:        "no",
		PasswordAuthentication: "no",
		PubkeyAuthentication:   "yes",
	}
}

// Load reads an INI file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not load config file %s: %w", path, err)
	}

	prov := file.Section("provision")
	if key := prov.Key("username"); key.String() != "" {
		cfg.Username = key.String()
	}
	if key := prov.Key("shell"); key.String() != "" {
		cfg.Shell = key.String()
	}

	if key := file.Section("packages").Key("extra"); key.String() != "" {
		cfg.ExtraPackages = key.Strings(",")
	}

	rt := file.Section("runtime")
	if key := rt.Key("nvm_version"); key.String() != "" {
		cfg.NVMVersion = key.String()
	}
	if key := rt.Key("cli_package"); key.String() != "" {
		cfg.CLIPackage = key.String()
	}

	sshd := file.Section("sshd")
	if key := sshd.Key("config_path"); key.String() != "" {
		cfg.SSHDConfigPath = key.String()
	}
	if key := sshd.Key("permit_root_login"); key.String() != "" {
		cfg.PermitRootLogin = key.String()
	}
	if key := sshd.Key("password_authentication"); key.String() != "" {
		cfg.PasswordAuthentication = key.String()
	}
	if key := sshd.Key("pubkey_authentication"); key.String() != "" {
		cfg.PubkeyAuthentication = key.String()
	}

	return cfg, nil
}
