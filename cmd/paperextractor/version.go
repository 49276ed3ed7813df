package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/paperextractor/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		common.PrintBanner(common.GetVersion())
		fmt.Printf("Paper Extractor version %s\n", common.GetFullVersion())
	},
}
