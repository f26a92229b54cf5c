package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "Train, evaluate, register and promote predictive models",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to the config file")

	rootCmd.AddCommand(
		newTrainCmd(),
		newEvalCmd(),
		newRegisterCmd(),
		newPromoteCmd(),
		newSetAliasCmd(),
		newDeleteAliasCmd(),
		newDeleteVersionCmd(),
		newDescribeCmd(),
		newListCmd(),
		newInfoCmd(),
		newServeCmd(),
	)
}

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
