package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/BradenHooton/customs/internal/repositories"
	"github.com/BradenHooton/customs/internal/services"
	"github.com/spf13/cobra"
)

var (
	recordKind string
	recordID   string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Inspect identity records",
}

var recordShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored record for an identity as JSON",
	Example: `  customsctl record show --kind email --id user@example.com
  customsctl record show --kind ip --id 203.0.113.7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := services.NewKeyBuilder(keyPrefix, hashKey)
		if err != nil {
			return err
		}
		key, err := keys.Key(recordKind, recordID)
		if err != nil {
			return err
		}

		client := newRedisClient()
		defer client.Close()

		rec, err := repositories.NewRedisRecordRepository(client).Get(cmd.Context(), key)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("no record for %s %q", recordKind, recordID)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	recordShowCmd.Flags().StringVar(&recordKind, "kind", models.IdentityKindEmail, "identity kind: email, ip or uid")
	recordShowCmd.Flags().StringVar(&recordID, "id", "", "identity value")
	_ = recordShowCmd.MarkFlagRequired("id")

	recordCmd.AddCommand(recordShowCmd)
}
