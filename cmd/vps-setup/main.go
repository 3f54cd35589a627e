package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/niewczasm/vps-setup/logger"
	cm "github.com/niewczasm/vps-setup/vpssetup/commandmanager"
	"github.com/niewczasm/vps-setup/vpssetup/config"
	"github.com/niewczasm/vps-setup/vpssetup/provision"
)

var (
	logFileName    string
	debug          bool
	configFile     string
	hostname       string
	sshUser        string
	passwordPrompt bool
	keyPassPrompt  bool
	log            = logrus.New()
)

func init() {
	flag.StringVar(&logFileName, "log", "", "Log file name (default: stderr)")
	flag.BoolVar(&debug, "debug", false, "Enable debug log level")
	flag.StringVar(&configFile, "config", "", "Optional INI config file")
	flag.StringVar(&hostname, "hostname", "", "Provision a remote host over SSH instead of this machine")
	flag.StringVar(&sshUser, "ssh-user", "root", "SSH user for remote provisioning")
	flag.BoolVar(&passwordPrompt, "password", false, "Prompt for an SSH password")
	flag.BoolVar(&keyPassPrompt, "keypass", false, "Prompt for an SSH key passphrase")
}

type SSHClientImpl struct{}

func (s *SSHClientImpl) Dial(network, addr string, sshConfig *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	sshConfig.Timeout = timeout
	return ssh.Dial(network, addr, sshConfig)
}

func promptSecret(label string) (string, error) {
	fmt.Printf("Enter the %s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func main() {
	flag.Parse()

	if logFileName != "" {
		file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			logrus.Fatal(err)
		}
		defer file.Close()
		log.SetOutput(file)
	}
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	credentials := cm.Credentials{User: sshUser}
	if hostname != "" {
		if passwordPrompt {
			if credentials.Password, err = promptSecret("SSH password"); err != nil {
				log.Fatalf("Failed to read password: %v", err)
			}
		}
		if keyPassPrompt {
			if credentials.KeyPassphrase, err = promptSecret("key passphrase"); err != nil {
				log.Fatalf("Failed to read key passphrase: %v", err)
			}
		}
	}

	manager := &cm.UnixCommandManager{
		Hostname:    hostname,
		SSHClient:   &SSHClientImpl{},
		Credentials: credentials,
	}

	prov := provision.New(cfg, manager, logger.New())
	pipeline := prov.Pipeline()

	target := hostname
	if target == "" {
		target = "this machine"
	}
	log.Infof("Provisioning %s (target account %q)", target, cfg.Username)

	if err := pipeline.Run(context.Background()); err != nil {
		switch {
		case errors.Is(err, provision.ErrNotRoot):
			log.Error("This tool must be run as root")
		default:
			log.Errorf("Provisioning failed: %v", err)
		}
		log.Infof("Completed steps: %v", pipeline.Completed)
		os.Exit(1)
	}

	log.Info("Provisioning finished successfully")
}
