package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/media"
	"github.com/sitio/sitio/internal/worker"
)

// ErrUnsafeOutDir каталог сборки совпадает с исходниками или содержит их
var ErrUnsafeOutDir = errors.New("refusing to clean output directory")

var (
	thumbnailExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true}
	posterExts    = map[string]bool{"mp4": true, "webm": true, "ogg": true, "ogv": true, "mov": true}
	validateExts  = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
		"mp4": true, "webm": true, "ogg": true, "mp3": true,
	}
)

// InvalidAsset файл, содержимое которого не совпадает с расширением
type InvalidAsset struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

// Report итог сборки
type Report struct {
	OutDir          string                `json:"out_dir"`
	Copied          []string              `json:"copied"`
	MinifyAvailable bool                  `json:"minify_available"`
	Minified        int                   `json:"minified"`
	Thumbnails      int                   `json:"thumbnails"`
	Posters         int                   `json:"posters"`
	FailedTasks     int64                 `json:"failed_tasks"`
	ReadmeHTML      bool                  `json:"readme_html"`
	Invalid         []InvalidAsset        `json:"invalid,omitempty"`
	Duplicates      []media.DuplicatePair `json:"duplicates,omitempty"`
}

// Builder собирает сайт в каталог сборки
type Builder struct {
	cfg      *config.Config
	runner   CommandRunner
	reporter Reporter
}

// New создает сборщик. runner nil - внешние команды запускаются через os/exec.
func New(cfg *config.Config, runner CommandRunner, reporter Reporter) *Builder {
	if runner == nil {
		runner = ExecRunner{}
	}
	if reporter == nil {
		reporter = &LogReporter{}
	}
	return &Builder{cfg: cfg, runner: runner, reporter: reporter}
}

// Run очищает каталог сборки, копирует манифест и строит производные файлы.
// Ошибки минификации и производных шагов логируются и не прерывают сборку.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	root, err := filepath.Abs(b.cfg.Site.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving site root: %w", err)
	}
	out, err := filepath.Abs(b.cfg.Site.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolving out dir: %w", err)
	}
	if rel, err := filepath.Rel(out, root); err == nil && !strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w %s: it contains the site root", ErrUnsafeOutDir, out)
	}

	logger.InfoLog.Printf("Building site %s into %s", root, out)

	if err := os.RemoveAll(out); err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", out, err)
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", out, err)
	}

	files, err := b.manifest(root, out)
	if err != nil {
		return nil, err
	}

	report := &Report{OutDir: out}
	b.reporter.Start(len(files))
	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := copyFile(filepath.Join(root, filepath.FromSlash(rel)), filepath.Join(out, filepath.FromSlash(rel))); err != nil {
			return nil, err
		}
		report.Copied = append(report.Copied, rel)
		b.reporter.Update(i+1, rel)
	}
	b.reporter.Finish()

	b.derive(ctx, root, out, report)

	if b.cfg.Build.ReadmeHTML {
		report.ReadmeHTML = b.readme(out)
	}

	report.Invalid = validate(out, report.Copied)

	if b.cfg.Build.Duplicates {
		report.Duplicates = duplicates(out, report.Copied)
	}

	logger.InfoLog.Printf("Build complete: %d files copied, %d minified, %d thumbnails, %d posters",
		len(report.Copied), report.Minified, report.Thumbnails, report.Posters)
	return report, nil
}

// manifest возвращает относительные пути (через /) файлов для копирования
func (b *Builder) manifest(root, out string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	add := func(rel string) {
		if seen[rel] || inside(filepath.Join(root, filepath.FromSlash(rel)), out) {
			return
		}
		seen[rel] = true
		files = append(files, rel)
	}

	for _, pattern := range b.cfg.Site.Files {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad manifest pattern %q: %w", pattern, err)
		}
		// Отсутствующие файлы манифеста пропускаются
		for _, m := range matches {
			add(m)
		}
	}

	for _, dir := range b.cfg.Site.Dirs {
		dir = path.Clean(filepath.ToSlash(dir))
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && p == dir {
					return fs.SkipDir
				}
				return err
			}
			if d.Type().IsRegular() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}

	return files, nil
}

// derive строит минифицированные CSS/JS, превью и постеры на пуле воркеров
func (b *Builder) derive(ctx context.Context, root, out string, report *Report) {
	thumbGen := media.NewThumbnailer(b.cfg.Thumbnails.Size, b.cfg.Thumbnails.Quality, b.cfg.Tools.Ffmpeg)
	pool := worker.NewPool(b.cfg.Build.Workers, 0)
	svc := NewAssetService(pool, thumbGen, b.runner, b.cfg.Tools.Npx)
	pool.Start()

	if b.cfg.Build.Minify {
		report.MinifyAvailable = b.minifiersAvailable(ctx)
		if report.MinifyAvailable {
			logger.InfoLog.Println("Minifiers detected, creating minified files...")
			for _, rel := range report.Copied {
				ext := media.Ext(rel)
				if (ext != "css" && ext != "js") || strings.Contains(path.Base(rel), ".min.") {
					continue
				}
				svc.QueueMinify(filepath.Join(root, filepath.FromSlash(rel)),
					filepath.Join(out, filepath.FromSlash(media.ReplaceExt(rel, ".min."+ext))))
			}
		} else {
			logger.InfoLog.Println("Minifier tools not found, output contains unminified assets. Install uglify-js and clean-css-cli to minify.")
		}
	}

	if b.cfg.Build.Thumbnails {
		for _, rel := range assetFiles(report.Copied, thumbnailExts) {
			if strings.Contains(rel, "/thumbs/") {
				continue
			}
			src := filepath.Join(out, filepath.FromSlash(rel))
			svc.QueueThumbnail(src, media.ThumbPath(src))
		}
	}

	if b.cfg.Build.Posters {
		if thumbGen.FfmpegAvailable() {
			for _, rel := range assetFiles(report.Copied, posterExts) {
				src := filepath.Join(out, filepath.FromSlash(rel))
				dst := media.ReplaceExt(src, ".jpg")
				if _, err := os.Stat(dst); err == nil {
					continue // Постер уже есть рядом с видео
				}
				svc.QueuePoster(src, dst)
			}
		} else {
			logger.InfoLog.Println("ffmpeg not found, skipping video posters")
		}
	}

	pool.Close()

	report.FailedTasks = pool.Stats().FailedTasks
	report.Thumbnails, report.Posters, report.Minified = svc.Counts()
}

// minifiersAvailable проверяет, что оба минификатора запускаются
func (b *Builder) minifiersAvailable(ctx context.Context) bool {
	if _, err := b.runner.Run(ctx, b.cfg.Tools.Npx, "uglify-js", "--version"); err != nil {
		return false
	}
	_, err := b.runner.Run(ctx, b.cfg.Tools.Npx, "cleancss", "--version")
	return err == nil
}

func (b *Builder) readme(out string) bool {
	src, err := os.ReadFile(filepath.Join(out, "README.md"))
	if err != nil {
		return false
	}

	body, err := RenderMarkdown(src)
	if err != nil {
		logger.ErrorLog.Printf("README.html skipped: %v", err)
		return false
	}
	if err := os.WriteFile(filepath.Join(out, "README.html"), readmePage("README", body), 0644); err != nil {
		logger.ErrorLog.Printf("README.html skipped: %v", err)
		return false
	}
	return true
}

func validate(out string, copied []string) []InvalidAsset {
	var invalid []InvalidAsset
	for _, rel := range copied {
		if !validateExts[media.Ext(rel)] {
			continue
		}
		info, err := media.DetectFileFormat(filepath.Join(out, filepath.FromSlash(rel)))
		if err != nil {
			invalid = append(invalid, InvalidAsset{Path: rel, Problem: err.Error()})
			continue
		}
		if !info.IsValid {
			invalid = append(invalid, InvalidAsset{Path: rel, Problem: info.Error})
		}
	}
	for _, a := range invalid {
		logger.ErrorLog.Printf("Asset %s: %s", a.Path, a.Problem)
	}
	return invalid
}

func duplicates(out string, copied []string) []media.DuplicatePair {
	var paths []string
	for _, rel := range assetFiles(copied, thumbnailExts) {
		paths = append(paths, filepath.Join(out, filepath.FromSlash(rel)))
	}

	pairs := media.FindDuplicates(paths)
	for i, p := range pairs {
		pairs[i].A, _ = filepath.Rel(out, p.A)
		pairs[i].B, _ = filepath.Rel(out, p.B)
		logger.InfoLog.Printf("Similar images: %s and %s (distance %d)", pairs[i].A, pairs[i].B, p.Distance)
	}
	return pairs
}

// assetFiles отбирает файлы из assets/ с нужными расширениями
func assetFiles(copied []string, exts map[string]bool) []string {
	var out []string
	for _, rel := range copied {
		if strings.HasPrefix(rel, "assets/") && exts[media.Ext(rel)] {
			out = append(out, rel)
		}
	}
	return out
}

func inside(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	outFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return outFile.Close()
}
