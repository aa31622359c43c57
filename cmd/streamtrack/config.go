package main

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chartzngrafs/streamtrack/internal/catalogue"
	"github.com/chartzngrafs/streamtrack/internal/config"
	"github.com/chartzngrafs/streamtrack/internal/logging"
	"github.com/chartzngrafs/streamtrack/internal/store"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or change persisted configuration",
	}
	cmd.AddCommand(newConfigUsernameCommand())
	cmd.AddCommand(newConfigPasswordCommand())
	cmd.AddCommand(newConfigMaxAudioQualityCommand())
	return cmd
}

func newConfigUsernameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "username [value]",
		Short: "Show or set the catalogue username",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Println(cfg.Catalogue.Username)
				return nil
			}
			cfg.Catalogue.Username = args[0]
			if err := config.Save(cfg); err != nil {
				return err
			}
			return recordCredentialsDisplay(cfg.Catalogue.Username, cfg.Catalogue.Password)
		},
	}
}

func newConfigPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "password [value]",
		Short: "Set the catalogue password (prompts securely if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				password, err = promptPassword()
				if err != nil {
					return err
				}
			}
			cfg.Catalogue.Password = password
			if err := config.Save(cfg); err != nil {
				return err
			}
			return recordCredentialsDisplay(cfg.Catalogue.Username, password)
		},
	}
}

func newConfigMaxAudioQualityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "max-audio-quality [mp3|cd|hi-res96|hi-res192]",
		Short: "Show or set the maximum stream quality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Println(cfg.Audio.MaxAudioQuality)
				return nil
			}
			if _, ok := catalogue.ParseAudioQuality(args[0]); !ok {
				return fmt.Errorf("unrecognised quality %q (want mp3, cd, hi-res96, or hi-res192)", args[0])
			}
			cfg.Audio.MaxAudioQuality = args[0]
			return config.Save(cfg)
		},
	}
}

// promptPassword reads a password from the terminal without echoing it, the
// way the spec's "config password (prompt if omitted)" rule asks for.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// recordCredentialsDisplay mirrors the credentials into the store's
// credentials record (username plus an md5 of the password). Nothing in
// this module reads that record back: the `config` subcommands read the
// TOML file, and it is never consulted for actual catalogue
// authentication, which recomputes a fresh salt+md5 token from the
// plaintext password on every request (see internal/catalogue/transport.go).
func recordCredentialsDisplay(username, password string) error {
	dbPath, err := defaultDBPath()
	if err != nil {
		return err
	}
	logger := logging.New(logLevel)
	st, err := store.Open(dbPath, logging.Component(logger, "store"))
	if err != nil {
		return err
	}
	defer st.Close()

	var passwordMD5 *string
	if password != "" {
		sum := md5.Sum([]byte(password))
		sumHex := hex.EncodeToString(sum[:])
		passwordMD5 = &sumHex
	}
	var usernamePtr *string
	if username != "" {
		usernamePtr = &username
	}
	return st.SetCredentials(store.Credentials{Username: usernamePtr, PasswordMD5: passwordMD5})
}
