package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/AzielCF/az-salesiq/integrations/zohoauth"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain a SalesIQ access token and print its preview",
	Run:   printToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func printToken(_ *cobra.Command, _ []string) {
	tok, err := credentialStore.AccessToken(context.Background())
	if err != nil {
		logrus.WithError(err).Error("[AUTH] could not obtain an access token")
		os.Exit(1)
	}
	fmt.Println(zohoauth.Preview(tok))
}
