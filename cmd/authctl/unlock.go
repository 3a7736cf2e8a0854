package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nagiyevstudio/tastetrack/core"
)

// NewUnlockCmd creates the unlock subcommand.
func NewUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <ip>",
		Short: "Clear failed-login history for an IP",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnlock,
	}
}

func runUnlock(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
	}
	defer client.Close()

	limiter := core.NewRedisRateLimiter(client, core.RateLimitPolicy{
		MaxAttempts: cfg.RateLimitMaxAttempts,
		Window:      cfg.RateLimitWindow,
	})
	return unlock(context.Background(), cmd, limiter, args[0])
}

func unlock(ctx context.Context, cmd *cobra.Command, limiter core.LoginLimiter, ip string) error {
	n, err := limiter.Attempts(ctx, ip)
	if err != nil {
		return err
	}
	if err := limiter.Clear(ctx, ip); err != nil {
		return err
	}
	cmd.Printf("Cleared %d failed attempt(s) for %s\n", n, ip)
	return nil
}
