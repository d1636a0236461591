package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitio/sitio/internal/build"
	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/watch"
	"github.com/sitio/sitio/internal/web"
	"github.com/sitio/sitio/internal/worker"
)

var (
	serveDist  bool
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site and the contact endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Cleanup()

		if serveWatch && !serveDist {
			return errors.New("--watch requires --dist")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		root := cfg.Site.Root
		if serveDist {
			if _, err := rebuild(ctx, cfg); err != nil {
				return err
			}
			root = cfg.Site.OutDir
		}

		if serveWatch {
			w, err := watchAndRebuild(ctx, cfg)
			if err != nil {
				return err
			}
			defer w.Stop()
		}

		pool := worker.NewPool(2, 0)
		srv := web.NewServer(cfg, root, pool)
		pool.Start()
		defer pool.Close()

		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveDist, "dist", false, "build the site and serve the output directory")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the output directory when sources change (with --dist)")
	rootCmd.AddCommand(serveCmd)
}

var rebuildMu sync.Mutex

func rebuild(ctx context.Context, cfg *config.Config) (*build.Report, error) {
	rebuildMu.Lock()
	defer rebuildMu.Unlock()
	return build.New(cfg, build.ExecRunner{}, build.NewReporter(true)).Run(ctx)
}

// watchAndRebuild пересобирает сайт после каждой пачки изменений в исходниках
func watchAndRebuild(ctx context.Context, cfg *config.Config) (*watch.Watcher, error) {
	out, err := filepath.Abs(cfg.Site.OutDir)
	if err != nil {
		return nil, err
	}

	w, err := watch.NewWatcher(cfg.Site.Root, watchIgnore(out, cfg.Logs.Path), 0)
	if err != nil {
		return nil, err
	}
	w.AddHandler(func(events []watch.FileEvent) {
		logger.InfoLog.Printf("%d source changes, rebuilding", len(events))
		if _, err := rebuild(ctx, cfg); err != nil {
			logger.ErrorLog.Printf("Rebuild failed: %v", err)
		}
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// watchIgnore пути, изменения в которых не вызывают пересборку: каталог
// сборки и логи. logs.path считается от рабочего каталога, как в logger.Init;
// без него исключается logs/ в корне сайта.
func watchIgnore(out, logsPath string) []string {
	if logsPath == "" {
		return []string{out, "logs"}
	}
	if abs, err := filepath.Abs(logsPath); err == nil {
		logsPath = abs
	}
	return []string{out, logsPath}
}
