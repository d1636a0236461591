package gallery

import (
	"strings"

	"github.com/sitio/sitio/internal/media"
)

// DefaultFallbackThumb превью для видео и аудио, у которых не нашлось своего
const DefaultFallbackThumb = "/assets/blog3.jpg"

// MediaItem элемент группы галереи. Не изменяется после построения.
type MediaItem struct {
	SourceURL     string     `json:"source_url"`
	NormalizedURL string     `json:"normalized_url"`
	Title         string     `json:"title"`
	Kind          media.Kind `json:"kind"`
	GroupIndex    int        `json:"group_index"`
	Fallbacks     []string   `json:"fallbacks,omitempty"` // сырые URL из data-fallback-images
	Poster        string     `json:"poster,omitempty"`    // data-poster / data-thumb
}

// MediaGroup упорядоченный набор элементов одной записи галереи
type MediaGroup []MediaItem

// NewItem создает элемент с нормализованным URL
func NewItem(src, title string, kind media.Kind, index int) MediaItem {
	return MediaItem{
		SourceURL:     src,
		NormalizedURL: media.NormalizeURL(src),
		Title:         title,
		Kind:          kind,
		GroupIndex:    index,
	}
}

// Candidates возвращает URL для проверки в порядке приоритета:
// нормализованный источник, затем fallback-и, затем сырой источник.
// Повторы не добавляются.
func (it MediaItem) Candidates() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	add(it.NormalizedURL)
	for _, fb := range it.Fallbacks {
		add(media.NormalizeURL(fb))
	}
	add(it.SourceURL)
	return out
}

// ThumbURL URL превью элемента для ленты миниатюр
func (it MediaItem) ThumbURL() string {
	if it.Kind == media.KindImage {
		return it.NormalizedURL
	}
	if it.Poster != "" {
		return media.NormalizeURL(it.Poster)
	}
	if it.SourceURL != "" {
		return media.NormalizeURL(media.ReplaceExt(it.SourceURL, ".jpg"))
	}
	return ""
}

// PreviewURL как ThumbURL, но для изображения сайта берет сгенерированное
// превью thumbs/<имя>.jpg, если exists подтверждает, что файл есть
func (it MediaItem) PreviewURL(exists func(rel string) bool) string {
	if it.Kind == media.KindImage && exists != nil && it.SourceURL != "" && !media.IsAbsolute(it.SourceURL) {
		if rel := media.ThumbURLPath(it.SourceURL); exists(rel) {
			return media.NormalizeURL(rel)
		}
	}
	return it.ThumbURL()
}

// Thumb кнопка ленты миниатюр
type Thumb struct {
	Index    int    `json:"index"`
	URL      string `json:"url"`
	Fallback string `json:"fallback,omitempty"` // показывается, если URL не загрузился
	Alt      string `json:"alt"`
	Active   bool   `json:"active"`
}

// Thumbs строит ленту миниатюр группы, отмечая active
func (g MediaGroup) Thumbs(active int, fallback string) []Thumb {
	return g.StripThumbs(active, fallback, nil)
}

// StripThumbs строит ленту, подставляя готовые превью изображений (см. PreviewURL)
func (g MediaGroup) StripThumbs(active int, fallback string, exists func(rel string) bool) []Thumb {
	if fallback == "" {
		fallback = DefaultFallbackThumb
	}

	thumbs := make([]Thumb, len(g))
	for i, it := range g {
		th := Thumb{
			Index:  i,
			URL:    it.PreviewURL(exists),
			Alt:    it.Title,
			Active: i == active,
		}
		if it.Kind != media.KindImage {
			th.Fallback = fallback
			if th.URL == "" {
				th.URL = fallback
			}
		}
		thumbs[i] = th
	}
	return thumbs
}

// splitList разбирает список вида "a.jpg | b.jpg||c.jpg"
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
