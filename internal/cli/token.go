package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/handler"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Subject string
	Name    string
	Email   string
	Role    string
	Groups  []string
	TTL     time.Duration
}

// NewTokenCommand creates the token command, which signs a bearer token
// for local testing against the API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a development identity",
		Long: `Sign an HS256 bearer token with JWT_SIGNING_KEY.

Example:
  fulfillment token --sub org-1 --role organizer
  fulfillment token --sub p-1 --name Asha --groups cse,year-3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.IsProduction() {
				return errors.New("token is disabled in production")
			}
			if opts.Config.JWTSigningKey == "" {
				return errors.New("JWT_SIGNING_KEY is required")
			}
			role := model.Role(opts.Role)
			switch role {
			case model.RoleParticipant, model.RoleOrganizer, model.RoleStaff:
			default:
				return fmt.Errorf("invalid role %q", opts.Role)
			}

			tok, err := handler.NewAuthenticator(opts.Config.JWTSigningKey).Sign(model.Actor{
				ID:     opts.Subject,
				Name:   opts.Name,
				Email:  opts.Email,
				Role:   role,
				Groups: opts.Groups,
			}, opts.TTL)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "sub", "", "subject (user ID) (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Role, "role", string(model.RoleParticipant), "participant|organizer|staff")
	cmd.Flags().StringSliceVar(&opts.Groups, "groups", nil, "eligibility groups")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}
