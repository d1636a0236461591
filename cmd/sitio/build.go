package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitio/sitio/internal/build"
)

var (
	buildOut      string
	buildNoMinify bool
	buildQuiet    bool
	buildJSON     bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Copy the site into the output directory and generate derived assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if buildOut != "" {
			cfg.Site.OutDir = buildOut
		}
		if buildNoMinify {
			cfg.Build.Minify = false
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := build.New(cfg, build.ExecRunner{}, build.NewReporter(buildQuiet || buildJSON)).Run(ctx)
		if err != nil {
			return err
		}

		if buildJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Built %s: %d files copied\n", report.OutDir, len(report.Copied))
		if cfg.Build.Minify && !report.MinifyAvailable {
			fmt.Fprintln(cmd.OutOrStdout(), "Minifiers not found, assets left unminified")
		} else if report.Minified > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Minified %d files\n", report.Minified)
		}
		if report.Thumbnails > 0 || report.Posters > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d thumbnails, %d posters\n", report.Thumbnails, report.Posters)
		}
		for _, a := range report.Invalid {
			fmt.Fprintf(cmd.OutOrStdout(), "Invalid asset %s: %s\n", a.Path, a.Problem)
		}
		for _, d := range report.Duplicates {
			fmt.Fprintf(cmd.OutOrStdout(), "Similar images %s and %s (distance %d)\n", d.A, d.B, d.Distance)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildOut, "out", "", "output directory (overrides site.out_dir)")
	buildCmd.Flags().BoolVar(&buildNoMinify, "no-minify", false, "skip CSS/JS minification")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "log progress instead of drawing a progress bar")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "print the build report as JSON")
	rootCmd.AddCommand(buildCmd)
}
