package cli

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/repositories"
	"github.com/spf13/cobra"
)

var (
	limitsFile      string
	limitsFromRedis bool
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Inspect and publish rate limits",
}

var limitsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective limits as YAML",
	Long: `Print the limits an instance would run with: the built-in defaults,
overlaid with --file when given, or the settings stored in redis with --redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := limits.NewHolder(limits.Default(), cliLogger(cmd))

		if limitsFromRedis {
			if err := applyStored(cmd, holder); err != nil {
				return err
			}
		}
		if limitsFile != "" {
			if err := applyFile(holder, limitsFile); err != nil {
				return err
			}
		}

		return printSettings(cmd, holder.Settings())
	},
}

var limitsPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Validate a YAML limits file and publish it to redis",
	Long: `Validate --file against the limits currently stored in redis and write
the accepted settings back. Keys with the wrong type or out of range keep
their stored value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if limitsFile == "" {
			return errors.New("--file is required")
		}

		holder := limits.NewHolder(limits.Default(), cliLogger(cmd))
		if err := applyStored(cmd, holder); err != nil {
			return err
		}
		if err := applyFile(holder, limitsFile); err != nil {
			return err
		}

		client := newRedisClient()
		defer client.Close()
		repo := repositories.NewRedisLimitsRepository(client, limitsKey())
		if err := repo.Save(cmd.Context(), holder.Settings()); err != nil {
			return fmt.Errorf("failed to publish limits: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "published limits to %s\n", limitsKey())
		return printSettings(cmd, holder.Settings())
	},
}

func init() {
	limitsShowCmd.Flags().StringVarP(&limitsFile, "file", "f", "", "YAML limits file to overlay")
	limitsShowCmd.Flags().BoolVar(&limitsFromRedis, "redis", false, "start from the limits stored in redis")
	limitsPushCmd.Flags().StringVarP(&limitsFile, "file", "f", "", "YAML limits file to publish")

	limitsCmd.AddCommand(limitsShowCmd)
	limitsCmd.AddCommand(limitsPushCmd)
}

func limitsKey() string {
	return keyPrefix + ":limits"
}

// applyStored overlays the redis settings, if any, onto holder.
func applyStored(cmd *cobra.Command, holder *limits.Holder) error {
	client := newRedisClient()
	defer client.Close()

	stored, err := repositories.NewRedisLimitsRepository(client, limitsKey()).Load(cmd.Context())
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load stored limits: %w", err)
	}
	if _, err := holder.Apply(stored); err != nil {
		return fmt.Errorf("stored limits are invalid: %w", err)
	}
	return nil
}

func applyFile(holder *limits.Holder, path string) error {
	candidate, err := limits.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := holder.Apply(candidate); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func printSettings(cmd *cobra.Command, settings limits.Settings) error {
	out, err := limits.MarshalYAML(settings)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
