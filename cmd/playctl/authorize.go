package main

import (
	"errors"
	"fmt"
	"os"

	"vodgate/internal/core/domain"
	httphandlers "vodgate/internal/handlers/http"

	"github.com/spf13/cobra"
)

var (
	flagUser       string
	flagVideo      string
	flagLivestream string
	flagIDToken    string
	flagPublic     bool
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Request a signed delivery cookie",
	Long: `Ask the gateway to authorize one video or livestreaming and print the
source URL and the signed cookie it issued.

The id token may also be given through VODGATE_ID_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runAuthorize,
}

func init() {
	addTargetFlags(authorizeCmd)
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagUser, "user", "", "user id")
	cmd.Flags().StringVar(&flagVideo, "video", "", "video id")
	cmd.Flags().StringVar(&flagLivestream, "livestream", "", "livestreaming id")
	cmd.Flags().StringVar(&flagIDToken, "id-token", "", "id token of the user")
	cmd.Flags().BoolVar(&flagPublic, "public", false, "request public access without identity")
	cmd.MarkFlagsMutuallyExclusive("video", "livestream")
	cmd.MarkFlagsOneRequired("video", "livestream")
}

func targetFromFlags() (target, error) {
	t := target{Kind: domain.KindVideo}
	t.Request = httphandlers.AuthorizeRequest{VideoID: flagVideo}
	if flagLivestream != "" {
		t.Kind = domain.KindLivestreaming
		t.Request = httphandlers.AuthorizeRequest{LivestreamingID: flagLivestream}
	}

	if flagPublic {
		t.Request.PublicAccess = true
		return t, nil
	}

	token := flagIDToken
	if token == "" {
		token = os.Getenv("VODGATE_ID_TOKEN")
	}
	if flagUser == "" || token == "" {
		return t, errors.New("--user and --id-token are required unless --public is set")
	}
	t.Request.UserID = flagUser
	t.Request.IDToken = token
	return t, nil
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	t, err := targetFromFlags()
	if err != nil {
		return err
	}

	g, err := newGatewayClient(gatewayURL).authorize(cmd.Context(), t)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %s\n", g.SrcURL)
	for _, c := range g.Cookies {
		fmt.Fprintf(out, "Cookie: %s\n", c.Name)
		fmt.Fprintf(out, "  Path:    %s\n", c.Path)
		fmt.Fprintf(out, "  Expires: %s\n", c.Expires.UTC().Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(out, "  Value:   %s\n", c.Value)
	}
	return nil
}
