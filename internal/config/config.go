package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix префикс переменных окружения, переопределяющих конфигурацию
const EnvPrefix = "SITIO_"

type Config struct {
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Site       SiteConfig       `yaml:"site" koanf:"site"`
	Contact    ContactConfig    `yaml:"contact" koanf:"contact"`
	Gallery    GalleryConfig    `yaml:"gallery" koanf:"gallery"`
	Build      BuildConfig      `yaml:"build" koanf:"build"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails" koanf:"thumbnails"`
	Tools      ToolsConfig      `yaml:"tools" koanf:"tools"`
	Logs       LogsConfig       `yaml:"logs" koanf:"logs"`
}

type ServerConfig struct {
	Host           string        `yaml:"host" koanf:"host"`
	Port           int           `yaml:"port" koanf:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" koanf:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" koanf:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
}

type SiteConfig struct {
	Root          string   `yaml:"root" koanf:"root"`       // Исходники сайта
	OutDir        string   `yaml:"out_dir" koanf:"out_dir"` // Результат сборки
	Pages         []string `yaml:"pages" koanf:"pages"`     // Страницы с галереей
	Files         []string `yaml:"files" koanf:"files"`     // Файлы манифеста (поддерживаются glob-шаблоны)
	Dirs          []string `yaml:"dirs" koanf:"dirs"`       // Директории манифеста
	FallbackThumb string   `yaml:"fallback_thumb" koanf:"fallback_thumb"`
}

type ContactConfig struct {
	MaxBodyBytes int64         `yaml:"max_body_bytes" koanf:"max_body_bytes"`
	RateLimit    int           `yaml:"rate_limit" koanf:"rate_limit"` // 0 = без ограничения
	RateWindow   time.Duration `yaml:"rate_window" koanf:"rate_window"`
}

type GalleryConfig struct {
	ProbeTimeout time.Duration `yaml:"probe_timeout" koanf:"probe_timeout"` // 0 = без таймаута
}

type BuildConfig struct {
	Minify     bool `yaml:"minify" koanf:"minify"`
	Thumbnails bool `yaml:"thumbnails" koanf:"thumbnails"`
	Posters    bool `yaml:"posters" koanf:"posters"`
	ReadmeHTML bool `yaml:"readme_html" koanf:"readme_html"`
	Duplicates bool `yaml:"duplicates" koanf:"duplicates"`
	Workers    int  `yaml:"workers" koanf:"workers"`
}

type ThumbnailsConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Quality int `yaml:"quality" koanf:"quality"` // JPEG quality (0-100)
}

type ToolsConfig struct {
	Npx    string `yaml:"npx" koanf:"npx"`
	Ffmpeg string `yaml:"ffmpeg" koanf:"ffmpeg"`
}

type LogsConfig struct {
	Path string `yaml:"path" koanf:"path"` // пусто = stderr
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{
		Build: BuildConfig{
			Minify:     true,
			Thumbnails: true,
			Posters:    true,
			ReadmeHTML: true,
			Duplicates: true,
		},
	}
	cfg.setDefaults()
	return cfg
}

// Load читает конфигурацию из YAML-файла и переменных окружения SITIO_*.
// Отсутствующий файл не является ошибкой.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// SITIO_SERVER_PORT -> server.port, SITIO_SITE_OUT_DIR -> site.out_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Совместимость с PORT из node-версии сервера
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"SERVER_PORT") == "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	cfg.setDefaults()

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

// Save записывает конфигурацию в YAML-файл
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	if c.Site.Root == "" {
		c.Site.Root = "."
	}
	if c.Site.OutDir == "" {
		c.Site.OutDir = "dist"
	}
	if len(c.Site.Pages) == 0 {
		c.Site.Pages = []string{"index.html", "portfolio.html"}
	}
	if len(c.Site.Files) == 0 {
		c.Site.Files = []string{"index.html", "portfolio.html", "contact.html", "robots.txt", "sitemap.xml", "README.md"}
	}
	if len(c.Site.Dirs) == 0 {
		c.Site.Dirs = []string{"assets", "css", "js"}
	}
	if c.Site.FallbackThumb == "" {
		c.Site.FallbackThumb = "/assets/blog3.jpg"
	}
	if c.Contact.MaxBodyBytes == 0 {
		c.Contact.MaxBodyBytes = 1e6
	}
	if c.Contact.RateWindow == 0 {
		c.Contact.RateWindow = time.Minute
	}
	if c.Thumbnails.Size == 0 {
		c.Thumbnails.Size = 300
	}
	if c.Thumbnails.Quality == 0 {
		c.Thumbnails.Quality = 85
	}
	if c.Tools.Npx == "" {
		c.Tools.Npx = "npx"
	}
	if c.Tools.Ffmpeg == "" {
		c.Tools.Ffmpeg = "ffmpeg"
	}
}

// Validate проверяет корректность значений
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Site.Root == "" {
		return fmt.Errorf("site.root is required")
	}
	if c.Site.OutDir == "" {
		return fmt.Errorf("site.out_dir is required")
	}
	if c.Contact.MaxBodyBytes < 0 {
		return fmt.Errorf("contact.max_body_bytes must be non-negative")
	}
	if c.Contact.RateLimit < 0 {
		return fmt.Errorf("contact.rate_limit must be non-negative")
	}
	if c.Gallery.ProbeTimeout < 0 {
		return fmt.Errorf("gallery.probe_timeout must be non-negative")
	}
	if c.Build.Workers < 0 {
		return fmt.Errorf("build.workers must be non-negative")
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		return fmt.Errorf("thumbnails.quality must be in 1..100")
	}
	return nil
}

// Addr возвращает адрес для прослушивания
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
