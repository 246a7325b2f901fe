package main

import (
	"errors"
	"fmt"

	"github.com/MarcMroz/open-voice-chat/internal/app/auth"
	"github.com/spf13/cobra"
)

var errMismatch = errors.New("password does not match")

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "roompass",
		Short:         "Room password tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newHashCommand(), newVerifyCommand())
	return root
}

type hashOptions struct {
	Iterations int
}

func newHashCommand() *cobra.Command {
	opts := &hashOptions{}
	cmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Print a passwordHash descriptor for a room",
		Long: `Print a PBKDF2-SHA256 descriptor with a random salt.

Example:
  roompass hash 'correct horse'
  roompass hash 'correct horse' --iterations 900000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Iterations < auth.MinIterations {
				return fmt.Errorf("iterations must be at least %d", auth.MinIterations)
			}
			desc, err := auth.HashPassword(args[0], opts.Iterations, auth.KeyLength)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Iterations, "iterations", auth.MinIterations, "PBKDF2 iteration count")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <descriptor> <password>",
		Short: "Check a password against a descriptor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.ParseHash(args[0], auth.MinIterations, auth.KeyLength)
			if err != nil {
				return err
			}
			if !h.Verify(args[1]) {
				return errMismatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
