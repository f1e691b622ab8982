package cmd

import (
	"fmt"
	"os"

	"waveger/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "waveger",
	Short: "Waveger is a music charts service.",
	Long:  `Waveger serves Billboard chart data with database caching, user accounts and favourites.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
