package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelhub/internal/auth"
	"novelhub/pkg/utils"
)

// newTokenCmd issues an admin bearer token for the API. It only needs the
// auth settings, so it does not open the store.
func newTokenCmd(cfgFile *string) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an admin token for the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := utils.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}
			ts := auth.TokenService{Secret: []byte(cfg.Auth.Secret), Issuer: cfg.Auth.Issuer, Duration: cfg.Auth.TTL}
			tok, exp, err := ts.Sign(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	return cmd
}
