package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator token signed with ADMIN_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("ADMIN_JWT_SECRET")
		if secret == "" {
			return errors.New("ADMIN_JWT_SECRET is not set")
		}

		token, err := auth.NewTokenManager(secret, time.Hour).GenerateAdminToken(tokenSubject, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "operator name recorded in audit logs")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}
