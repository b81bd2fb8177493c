// Command devtoken mints access tokens for local development, where no
// identity service is running.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/utils"
)

func main() {
	var (
		userID uint64
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint an access token signed with JWT_SECRET",
		Example: "  JWT_SECRET=dev devtoken --user 100 --role seller\n" +
			"  curl -H \"Authorization: Bearer $(devtoken -u 1 -r admin)\" localhost:8080/v1/admin/withdrawals",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			r, ok := model.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			tok, err := utils.NewAccessToken(secret, model.Actor{ID: userID, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&userID, "user", "u", 0, "user id placed in the sub claim")
	cmd.Flags().StringVarP(&role, "role", "r", strings.ToLower(string(model.RoleCustomer)), "customer, seller or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
