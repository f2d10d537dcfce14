package cli

import (
	"fmt"

	"github.com/phrazzld/scry-srs/internal/service/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for the HTTP API",
	Long: `Token signs a bearer token for subject with the configured
auth.jwt_secret. The subject names the client, e.g. "mobile" or "web".

Examples:
  SCRY_AUTH_JWT_SECRET=... scry token mobile`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	token, err := svc.GenerateToken(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
