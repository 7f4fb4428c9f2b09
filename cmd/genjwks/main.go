// genjwks generates the ES256 key used to sign development tokens and
// mints tokens for local testing.
//
// Usage:
//
//	go run ./cmd/genjwks keygen --out dev-key.json --jwks dev-jwks.json
//	go run ./cmd/genjwks mint --key dev-key.json --sub <user-uuid>
//
// Point AUTH_JWKS at the generated JWKS file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/spf13/cobra"
)

var (
	keyOut  string
	jwksOut string
	keyID   string

	keyPath string
	subject string
	issuer  string
	ttl     time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "genjwks",
		Short:         "Generate ES256 keys and development tokens for the Collage AppView",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a private signing key and its public JWKS",
		RunE:  runKeygen,
	}
	keygenCmd.Flags().StringVar(&keyOut, "out", "dev-key.json", "path for the private key (keep secret)")
	keygenCmd.Flags().StringVar(&jwksOut, "jwks", "dev-jwks.json", "path for the public JWKS")
	keygenCmd.Flags().StringVar(&keyID, "kid", "collage-dev-key", "key ID")

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed bearer token for a user",
		RunE:  runMint,
	}
	mintCmd.Flags().StringVar(&keyPath, "key", "dev-key.json", "private key produced by keygen")
	mintCmd.Flags().StringVar(&subject, "sub", "", "user ID to issue the token for")
	mintCmd.Flags().StringVar(&issuer, "iss", "", "issuer claim (must match AUTH_ISSUER when set)")
	mintCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = mintCmd.MarkFlagRequired("sub")

	rootCmd.AddCommand(keygenCmd, mintCmd)
	return rootCmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, err := generateKey(keyID)
	if err != nil {
		return err
	}

	private, err := jsonIndent(key)
	if err != nil {
		return err
	}
	public, err := publicJWKS(key)
	if err != nil {
		return err
	}

	if err := os.WriteFile(keyOut, private, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(jwksOut, public, 0o644); err != nil {
		return fmt.Errorf("failed to write JWKS: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Private key written to %s (never commit it)\n", keyOut)
	fmt.Fprintf(out, "Public JWKS written to %s\n", jwksOut)
	fmt.Fprintf(out, "Set AUTH_JWKS=%s\n", jwksOut)
	return nil
}

func runMint(cmd *cobra.Command, args []string) error {
	key, err := jwk.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read key %s: %w", keyPath, err)
	}
	signingKey, ok := key.Key(0)
	if !ok {
		return fmt.Errorf("key file %s is empty", keyPath)
	}

	token, err := mintToken(signingKey, subject, issuer, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
