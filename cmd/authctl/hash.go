package main

import (
	"context"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nagiyevstudio/tastetrack/core"
)

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the stored digest for a password",
		Long: `Prompt for a password and print SHA-256(password + AUTH_PEPPER) as
lower-case hex, the value kept in app_auth.password_hash.`,
		RunE: runHash,
	}
}

func runHash(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requirePepper(cfg); err != nil {
		return err
	}
	password, err := promptPassword(cmd, "Password: ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), core.Digest(password, cfg.AuthPepper))
	return nil
}

// NewSetPasswordCmd creates the set-password subcommand.
func NewSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password",
		Short: "Replace the login password",
		Long:  `Prompt twice for a new password and store its digest in app_auth.`,
		RunE:  runSetPassword,
	}
}

func runSetPassword(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requirePepper(cfg); err != nil {
		return err
	}
	password, err := promptPassword(cmd, "New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(cmd, "Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
	}

	ctx := context.Background()
	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	if err := core.NewPgCredentialRepository(db).Set(ctx, core.Digest(password, cfg.AuthPepper)); err != nil {
		return err
	}
	cmd.Println("Password updated")
	return nil
}
