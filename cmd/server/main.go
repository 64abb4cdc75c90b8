package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), logLevel)
		},
	}

	var file, store string
	imp := &cobra.Command{
		Use:   "import",
		Short: "Load places from a CSV, TSV, XLSX or HTML sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), logLevel, file, store)
		},
	}
	imp.Flags().StringVar(&file, "file", "", "Place sheet (.csv, .tsv, .xlsx, .html)")
	imp.Flags().StringVar(&store, "store", "", "Target store (sqlite|elasticsearch); defaults to PLACE_STORE")
	_ = imp.MarkFlagRequired("file")

	root := &cobra.Command{
		Use:          "daytrip",
		Short:        "One-day trip itinerary planner",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	root.AddCommand(serve, imp)
	return root
}
