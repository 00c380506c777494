// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto"
)

// defaultNoiseKeyFile is the default path of the server's static key.
const defaultNoiseKeyFile = "sslpin-noise.key"

// noiseCmd is the parent command for Noise protocol key management.
var noiseCmd = &cobra.Command{
	Use:   "noise",
	Short: "Noise static key management",
	Long: `Tools for the Curve25519 static keys used by 'sslpin serve' and
'sslpin sync'.

Subcommands:
  generate - Generate a new static keypair
  show     - Display the public key from a key file`,
}

var noiseGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a Noise static keypair",
	Long: `Generate a new Curve25519 static keypair. The hex private key is
written to --key-file with mode 0600 and the public key is printed.`,
	RunE: runNoiseGenerate,
}

var noiseShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the public key from a key file",
	RunE:  runNoiseShow,
}

func init() {
	noiseCmd.AddCommand(noiseGenerateCmd)
	noiseCmd.AddCommand(noiseShowCmd)

	noiseGenerateCmd.Flags().String("key-file", defaultNoiseKeyFile, "output path for the private key")
	noiseShowCmd.Flags().String("key-file", "", "path to hex-encoded private key file (required)")
}

func runNoiseGenerate(cmd *cobra.Command, args []string) error {
	keyFile, _ := cmd.Flags().GetString("key-file")
	if keyFile == "" {
		return fmt.Errorf("%w: --key-file is required", ErrInvalidInput)
	}

	key, err := noiseproto.GenerateStaticKey()
	if err != nil {
		return fmt.Errorf("%w: generating keypair: %w", ErrKeyOperation, err)
	}
	defer noiseproto.WipeDHKey(key)

	if err := noiseproto.WriteKeyFile(keyFile, key); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}

	slog.Info("private key written", "path", keyFile)
	return writeOutput(cmd, []byte(fmt.Sprintf("Public key: %s\n", hex.EncodeToString(key.Public))))
}

func runNoiseShow(cmd *cobra.Command, args []string) error {
	keyFile, _ := cmd.Flags().GetString("key-file")
	if keyFile == "" {
		return fmt.Errorf("%w: --key-file is required", ErrInvalidInput)
	}

	key, err := noiseproto.ReadKeyFile(keyFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyOperation, err)
	}
	defer noiseproto.WipeDHKey(key)

	return writeOutput(cmd, []byte(fmt.Sprintf("Public key: %s\n", hex.EncodeToString(key.Public))))
}
