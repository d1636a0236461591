package gallery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sitio/sitio/internal/media"
)

// parseElement возвращает первый элемент с классом class
func parseElement(t *testing.T, markup, class string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	el := findFirst(doc, func(n *html.Node) bool { return hasClass(n, class) })
	require.NotNil(t, el, "no element with class %s", class)
	return el
}

func TestBuildGroup_DataImages(t *testing.T) {
	el := parseElement(t, `
		<div class="portfolio-item" data-title="Branding" data-images="a b.jpg | clip.MP4?v=1 || logo.webm"
			data-fallback-images="alt.jpg|" data-poster="poster.jpg">
			<img src="cover.jpg" alt="Cover">
		</div>`, "portfolio-item")

	group, err := BuildGroup(el)
	require.NoError(t, err)
	require.Len(t, group, 3)

	assert.Equal(t, "a b.jpg", group[0].SourceURL)
	assert.Equal(t, "a%20b.jpg", group[0].NormalizedURL)
	assert.Equal(t, media.KindImage, group[0].Kind)
	assert.Equal(t, media.KindVideo, group[1].Kind)
	// Клик проверяет только mp4
	assert.Equal(t, media.KindImage, group[2].Kind)

	for i, it := range group {
		assert.Equal(t, i, it.GroupIndex)
		assert.Equal(t, "Branding", it.Title)
		assert.Equal(t, []string{"alt.jpg"}, it.Fallbacks)
		assert.Equal(t, "poster.jpg", it.Poster)
	}
}

func TestBuildGroup_SingleItem(t *testing.T) {
	el := parseElement(t, `
		<div class="portfolio-item">
			<img src="assets/diseño 1.png" alt="Diseño">
			<div class="item-info"><h3>  Identidad visual </h3></div>
		</div>`, "portfolio-item")

	group, err := BuildGroup(el)
	require.NoError(t, err)
	require.Len(t, group, 1)
	assert.Equal(t, "assets/diseño 1.png", group[0].SourceURL)
	assert.Equal(t, "assets/dise%C3%B1o%201.png", group[0].NormalizedURL)
	assert.Equal(t, "Identidad visual", group[0].Title)
	assert.Equal(t, media.KindImage, group[0].Kind)
}

func TestBuildGroup_DataSrcWins(t *testing.T) {
	el := parseElement(t, `
		<div class="portfolio-item" data-src="videos/reel.webm"><img src="cover.jpg" alt="Reel"></div>`,
		"portfolio-item")

	group, err := BuildGroup(el)
	require.NoError(t, err)
	require.Len(t, group, 1)
	assert.Equal(t, "videos/reel.webm", group[0].SourceURL)
	assert.Equal(t, media.KindVideo, group[0].Kind)
	assert.Equal(t, "Reel", group[0].Title)
}

func TestBuildGroup_Errors(t *testing.T) {
	audio := parseElement(t, `<div class="portfolio-item" data-category="audio" data-src="a.mp3"></div>`, "portfolio-item")
	_, err := BuildGroup(audio)
	assert.ErrorIs(t, err, ErrInlineAudio)

	empty := parseElement(t, `<div class="portfolio-item"><p>sin imagen</p></div>`, "portfolio-item")
	_, err = BuildGroup(empty)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestBuildDeclaredGroup(t *testing.T) {
	el := parseElement(t, `
		<div class="portfolio-group" data-images="a.jpg|b.ogg|c.mp3">
			<div class="item-info"><h3>Campaña</h3></div>
		</div>`, "portfolio-group")

	group := BuildDeclaredGroup(el)
	require.Len(t, group, 3)
	assert.Equal(t, media.KindImage, group[0].Kind)
	assert.Equal(t, media.KindVideo, group[1].Kind)
	assert.Equal(t, media.KindAudio, group[2].Kind)
	assert.Equal(t, "Campaña", group[2].Title)

	empty := parseElement(t, `<div class="portfolio-group" data-images=" | "></div>`, "portfolio-group")
	assert.Empty(t, BuildDeclaredGroup(empty))
}

func TestResolveTitle_Precedence(t *testing.T) {
	el := parseElement(t, `<div class="x"><img src="a.jpg" alt="Alt"></div>`, "x")
	assert.Equal(t, "Alt", ResolveTitle(el))

	el = parseElement(t, `<div class="x"></div>`, "x")
	assert.Equal(t, "", ResolveTitle(el))

	el = parseElement(t, `<div class="x" data-title="T"><h3 class="item-info">H</h3></div>`, "x")
	assert.Equal(t, "T", ResolveTitle(el))
}

func TestMediaItem_Thumbs(t *testing.T) {
	video := NewItem("videos/reel 1.mp4", "Reel", media.KindVideo, 1)
	poster := NewItem("b.mp4", "B", media.KindVideo, 2)
	poster.Poster = "posters/b 1.jpg"

	group := MediaGroup{NewItem("a b.jpg", "A", media.KindImage, 0), video, poster}
	thumbs := group.Thumbs(1, "")
	require.Len(t, thumbs, 3)

	assert.Equal(t, Thumb{Index: 0, URL: "a%20b.jpg", Alt: "A"}, thumbs[0])
	assert.Equal(t, Thumb{Index: 1, URL: "videos/reel%201.jpg", Fallback: DefaultFallbackThumb, Alt: "Reel", Active: true}, thumbs[1])
	assert.Equal(t, "posters/b%201.jpg", thumbs[2].URL)
}

func TestMediaGroup_StripThumbsPreferBuiltPreviews(t *testing.T) {
	built := map[string]bool{"assets/thumbs/a b.jpg": true, "assets/thumbs/clip.jpg": true}
	exists := func(rel string) bool { return built[rel] }

	group := MediaGroup{
		NewItem("assets/a b.png?v=2", "A", media.KindImage, 0),
		NewItem("assets/c.jpg", "C", media.KindImage, 1),
		NewItem("https://cdn.example.com/d.jpg", "D", media.KindImage, 2),
		NewItem("assets/clip.mp4", "Clip", media.KindVideo, 3),
	}
	thumbs := group.StripThumbs(0, "", exists)
	require.Len(t, thumbs, 4)

	assert.Equal(t, "assets/thumbs/a%20b.jpg", thumbs[0].URL)
	assert.Equal(t, "assets/c.jpg", thumbs[1].URL)
	assert.Equal(t, "https://cdn.example.com/d.jpg", thumbs[2].URL)
	// Для видео остается постер рядом с файлом
	assert.Equal(t, "assets/clip.jpg", thumbs[3].URL)

	assert.Equal(t, group[0].PreviewURL(exists), thumbs[0].URL)
	assert.Equal(t, group.Thumbs(0, ""), group.StripThumbs(0, "", nil))
}
