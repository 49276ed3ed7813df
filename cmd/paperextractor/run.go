package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/ternarybob/paperextractor/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run <note>",
	Short: "Rename the note, fetch the paper and write its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(args[0], func(ctx context.Context, application *app.App, notePath string) error {
			return application.Orchestrator.Run(ctx, notePath)
		})
	},
}

var titleCmd = &cobra.Command{
	Use:   "title <note>",
	Short: "Rename the note after the paper title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(args[0], func(ctx context.Context, application *app.App, notePath string) error {
			return application.Orchestrator.RunTitle(ctx, notePath)
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <note>",
	Short: "Rename the note and save the paper HTML and PDF beside it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(args[0], func(ctx context.Context, application *app.App, notePath string) error {
			return application.Orchestrator.RunFetch(ctx, notePath)
		})
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <note>",
	Short: "Summarize the already fetched paper HTML into the note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNote(args[0], func(ctx context.Context, application *app.App, notePath string) error {
			return application.Orchestrator.RunSummary(ctx, notePath)
		})
	},
}
