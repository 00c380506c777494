// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/settings"
)

// defaultSettingsFile is the settings document used when --settings is unset.
const defaultSettingsFile = "sslpin-settings.json"

var (
	quiet        bool
	debug        bool
	outputFile   string
	logFormat    string
	settingsPath string
)

// logLevel controls the global slog level at runtime.
var logLevel = new(slog.LevelVar)

// exitFunc is the function called to exit the program.
// This can be overridden in tests to capture exit calls.
var exitFunc = os.Exit

var rootCmd = &cobra.Command{
	Use:   "sslpin",
	Short: "TLS public key pinning tool",
	Long: `sslpin validates, stores and enforces TLS public key pin configurations
of the form {"sha256Keys": {"<hostname>": ["sha256/<base64>", ...]}}.

The enable flag and the configuration override are kept in a settings
file (--settings). Pins can be computed from certificates, discovered
from DANE TLSA records, or distributed over a Noise_NK channel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text|json)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", defaultSettingsFile,
		"settings file (.json, .yaml or .toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(daneCmd)
	rootCmd.AddCommand(noiseCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
}

// initLogging configures the global slog logger based on CLI flags.
//
//	--debug: LevelDebug with source location
//	default: LevelInfo
//	--quiet: LevelError (only errors shown)
//
// --debug takes precedence over --quiet.
func initLogging() {
	switch {
	case debug:
		logLevel.Set(slog.LevelDebug)
	case quiet:
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: debug,
	}

	handlers := map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
		"text": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
		"json": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) },
	}

	factory, ok := handlers[logFormat]
	if !ok {
		factory = handlers["text"]
	}

	slog.SetDefault(slog.New(factory(os.Stderr, opts)))
}

// writeOutput writes data to the --output file, or to the command's
// output stream when --output is empty.
func writeOutput(cmd *cobra.Command, data []byte) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		slog.Info("written to file", "path", outputFile, "bytes", len(data))
		return nil
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	return nil
}

// openStore opens the --settings file store.
func openStore() (*settings.FileStore, error) {
	store, err := settings.NewFileStore(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return store, nil
}

// readConfig reads a configuration payload from path, or from the
// command's input stream when path is "-".
func readConfig(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: --config is required", ErrInvalidInput)
	}
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("%w: reading stdin: %w", ErrFileOperation, err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrFileOperation, path, err)
	}
	return string(data), nil
}

// loadTLSConfig returns a TLS configuration trusting the PEM roots in
// caFile, or nil to use the system roots.
func loadTLSConfig(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFileOperation, caFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("%w: no certificates in %s", ErrInvalidInput, caFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
