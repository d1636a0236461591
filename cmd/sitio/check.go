package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/contact"
	"github.com/sitio/sitio/internal/gallery"
	"github.com/sitio/sitio/internal/media"
)

var checkContact string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Open every gallery item on the site pages and report the ones that fail to load",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if checkContact != "" {
			parts := strings.SplitN(checkContact, ",", 3)
			for len(parts) < 3 {
				parts = append(parts, "")
			}
			if err := contact.ValidateClient(parts[0], parts[1], parts[2]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Contact form input is valid")
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		failures, err := checkSite(ctx, cfg, cmd)
		if err != nil {
			return err
		}
		if failures > 0 {
			return fmt.Errorf("%d gallery items failed to load", failures)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All gallery items loaded")
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkContact, "contact", "", `validate contact form input "name,email,message" instead of checking the gallery`)
	rootCmd.AddCommand(checkCmd)
}

// checkSite открывает каждую группу каждой страницы в просмотрщике поверх
// файлов сайта и возвращает число элементов, которые не загрузились
func checkSite(ctx context.Context, cfg *config.Config, cmd *cobra.Command) (int, error) {
	resolver := gallery.NewResolver(gallery.NewFileProber(cfg.Site.Root), cfg.Gallery.ProbeTimeout)
	failures := 0

	for _, name := range cfg.Site.Pages {
		f, err := os.Open(filepath.Join(cfg.Site.Root, name))
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: not found, skipped\n", name)
			continue
		}
		if err != nil {
			return failures, err
		}
		page, err := gallery.ScanPage(f)
		f.Close()
		if err != nil {
			return failures, fmt.Errorf("%s: %w", name, err)
		}

		surface := gallery.NewMemorySurface("")
		viewer := gallery.NewViewer(surface, resolver, cfg.Site.FallbackThumb)
		checked := 0

		for _, entry := range page.Entries {
			if err := ctx.Err(); err != nil {
				return failures, err
			}

			if entry.Type == gallery.EntryInlineAudio {
				item := gallery.NewItem(entry.Source, entry.Title, media.KindAudio, 0)
				checked++
				if res := resolver.Resolve(ctx, item); res.Err != nil {
					failures++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %q (%s): %v\n", name, entry.Title, entry.Source, res.Err)
				}
				continue
			}

			for i, item := range entry.Group {
				if err := viewer.Open(entry.Group, i); err != nil {
					return failures, err
				}
				viewer.Wait()
				checked++

				if r := surface.Media(); r == nil || r.Error != "" {
					failures++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %q (%s): %s\n", name, item.Title, item.SourceURL, gallery.ErrorMessage(item.Kind))
				}
			}
		}
		viewer.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d items checked\n", name, len(page.Entries), checked)
	}

	return failures, nil
}
