package main

import (
	"fmt"
	"net/url"
	"time"

	"vodgate/internal/core/services"
	"vodgate/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	inspectKey     string
	inspectKeyName string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <cookie-value>",
	Short: "Decode a signed cookie value",
	Long: `Decode the fields of a signed CDN cookie value.

With --key the signature is checked as well. The key is the same base64
secret the gateway signs with.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectKey, "key", "", "base64 signing key to verify with")
	inspectCmd.Flags().StringVar(&inspectKeyName, "key-name", "", "key name to verify with (defaults to the one in the value)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	value := args[0]
	tok, err := services.ParseSignedValue(value)
	if err != nil {
		return fmt.Errorf("not a signed cookie value: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "URL prefix: %s\n", tok.URLPrefix)
	fmt.Fprintf(out, "Key name:   %s\n", tok.KeyName)
	fmt.Fprintf(out, "Expires:    %s", tok.ExpiresAt.Format(time.RFC3339))
	if time.Now().After(tok.ExpiresAt) {
		fmt.Fprint(out, " (expired)")
	}
	fmt.Fprintln(out)

	if inspectKey == "" {
		return nil
	}

	u, err := url.Parse(tok.URLPrefix)
	if err != nil {
		return err
	}
	keyName := inspectKeyName
	if keyName == "" {
		keyName = tok.KeyName
	}
	signer, err := services.NewCDNSigner(services.CDNSignerConfig{
		KeyName:   keyName,
		SecretKey: inspectKey,
		BaseURL:   u.Scheme + "://" + u.Host,
	}, logger.New(logLevel, "console").Sugar())
	if err != nil {
		return err
	}
	if _, err := signer.Verify(value); err != nil {
		fmt.Fprintf(out, "Signature:  INVALID (%v)\n", err)
		return err
	}
	fmt.Fprintln(out, "Signature:  valid")
	return nil
}
