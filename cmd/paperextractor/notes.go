package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/paperextractor/internal/app"
)

var (
	newDir    string
	exportOut string
)

var newCmd = &cobra.Command{
	Use:   "new <url>",
	Short: "Create a paper note from the note template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, application *app.App) error {
			notePath, err := application.NewNote(ctx, args[0], newDir)
			if err != nil {
				return err
			}
			fmt.Println(notePath)
			return nil
		})
	},
}

var exportSummaryCmd = &cobra.Command{
	Use:   "export-summary <note>",
	Short: "Render the note's summary to a PDF beside the paper files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(args[0], func(ctx context.Context, application *app.App, notePath string) error {
			written, err := application.ExportSummary(ctx, notePath, exportOut)
			if err != nil {
				return err
			}
			fmt.Println(written)
			return nil
		})
	},
}

func init() {
	newCmd.Flags().StringVar(&newDir, "dir", "", "Vault folder for the new note")
	exportSummaryCmd.Flags().StringVar(&exportOut, "out", "", "Vault path of the PDF (default <folder>/<id>_summary.pdf)")
}
