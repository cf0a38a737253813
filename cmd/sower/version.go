package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sower"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sower",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sower version %s\n", strings.TrimSpace(sower.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
