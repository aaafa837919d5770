package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/pkg/config"
	"github.com/marmos91/mountfd/pkg/controlplane/api"
	"github.com/marmos91/mountfd/pkg/controlplane/api/auth"
)

var (
	tokenUsername string
	tokenRole     string
	tokenJSON     bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token pair",
	Long: `Mint a signed access/refresh token pair for the control plane API.

There is no user database: tokens are minted out-of-band with this command
using the same signing secret the daemon runs with. The role claim carries
the full authorization decision:

  admin   full access, including mutating operations
  viewer  read-only access to contexts, filesystems, and instances

The signing secret is taken from the ` + api.EnvJWTSecret + ` environment
variable or the configuration file.

Examples:
  # Mint an admin token pair
  mountfd token --username alice --role admin

  # Mint a read-only token pair as JSON
  mountfd token --username ci-bot --role viewer --json`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUsername, "username", "u", "", "Username embedded in the token (required)")
	tokenCmd.Flags().StringVarP(&tokenRole, "role", "r", auth.RoleViewer, "Role claim (admin|viewer)")
	tokenCmd.Flags().BoolVar(&tokenJSON, "json", false, "Output the token pair as JSON")
	_ = tokenCmd.MarkFlagRequired("username")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	secret := cfg.ControlPlane.GetJWTSecret()
	if secret == "" {
		return fmt.Errorf("no JWT secret configured; set %s or run mountfd init", api.EnvJWTSecret)
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:               secret,
		Issuer:               "mountfd",
		AccessTokenDuration:  cfg.ControlPlane.JWT.AccessTokenDuration,
		RefreshTokenDuration: cfg.ControlPlane.JWT.RefreshTokenDuration,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	pair, err := jwtService.GenerateTokenPair(tokenUsername, tokenRole)
	if err != nil {
		return fmt.Errorf("failed to mint token pair: %w", err)
	}

	if tokenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pair)
	}

	fmt.Printf("Access token (expires %s):\n  %s\n\n", pair.ExpiresAt.Format("2006-01-02 15:04:05 MST"), pair.AccessToken)
	fmt.Printf("Refresh token:\n  %s\n", pair.RefreshToken)
	return nil
}
