// Package cli implements customsctl, the operator tool for inspecting and
// changing a running customs deployment through its shared stores.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	redisAddr     string
	redisPassword string
	keyPrefix     string
	hashKey       string
	verbose       bool
)

// SetVersion sets the version injected at build time.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "customsctl",
	Short: "Operate the customs abuse prevention service",
	Long: `customsctl talks to the stores shared by customs instances.

Limits pushed here are picked up by every instance on its next poll.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "customsctl %s\n", version)
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "redis address")
	rootCmd.PersistentFlags().StringVar(&redisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "redis password")
	rootCmd.PersistentFlags().StringVar(&keyPrefix, "key-prefix", envOr("KEY_PREFIX", "customs"), "key prefix shared with the service")
	rootCmd.PersistentFlags().StringVar(&hashKey, "hash-key", os.Getenv("IDENTITY_HASH_KEY"), "identity hash key shared with the service")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log limit validation details")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(limitsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(tokenCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: redisAddr, Password: redisPassword})
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
	var w io.Writer = io.Discard
	if verbose {
		w = cmd.ErrOrStderr()
	}
	return slog.New(slog.NewTextHandler(w, nil))
}
