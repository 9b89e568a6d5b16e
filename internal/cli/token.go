package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// newTokenCmd walks through the OAuth2 consent flow for the notifier's
// refresh token
func newTokenCmd() *cobra.Command {
	var redirectURL string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain a Gmail refresh token for sender notifications",
		Long: `Token prints a consent URL for the Gmail send scope, reads the
authorization code from stdin and prints the refresh token to put into
GMAIL_REFRESH_TOKEN. GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := os.Getenv("GMAIL_CLIENT_ID")
			clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
			}

			conf := &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Scopes:       []string{gmail.GmailSendScope},
				Endpoint:     google.Endpoint,
				RedirectURL:  redirectURL,
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Go to the following link in your browser: %v\n", conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
			fmt.Fprint(cmd.OutOrStdout(), "\nEnter the authorization code: ")

			var code string
			if _, err := fmt.Fscan(cmd.InOrStdin(), &code); err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}

			tok, err := conf.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("unable to retrieve token: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nRefresh Token: %s\n", tok.RefreshToken)
			fmt.Fprintf(cmd.OutOrStdout(), "export GMAIL_REFRESH_TOKEN=%q\n", tok.RefreshToken)
			return nil
		},
	}

	cmd.Flags().StringVar(&redirectURL, "redirect-url", "http://localhost:8080/callback", "OAuth2 redirect URL registered for the client")
	return cmd
}
