package gallery

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sitio/sitio/internal/media"
)

var (
	// ErrInlineAudio элемент аудио-категории проигрывается на странице и не открывает просмотрщик
	ErrInlineAudio = errors.New("audio items play inline")
	// ErrNoSource у элемента нет ни data-src, ни <img src>
	ErrNoSource = errors.New("element has no media source")
)

// BuildGroup строит группу для клика по элементу портфолио.
// data-images дает группу из нескольких элементов, иначе группа из одного
// элемента по data-src или первому вложенному <img>.
func BuildGroup(el *html.Node) (MediaGroup, error) {
	if IsInlineAudio(el) {
		return nil, ErrInlineAudio
	}

	title := ResolveTitle(el)
	if images, ok := attr(el, "data-images"); ok && images != "" {
		if t, _ := attr(el, "data-title"); t != "" {
			title = t
		}
		parts := splitList(images)
		group := make(MediaGroup, 0, len(parts))
		for i, src := range parts {
			kind := media.KindImage
			// Клик проверяет только префикс mp4 у хвоста после последней точки
			if strings.HasPrefix(strings.ToLower(lastDotPart(src)), "mp4") {
				kind = media.KindVideo
			}
			group = append(group, decorate(NewItem(src, title, kind, i), el))
		}
		return group, nil
	}

	src := ResolveSource(el)
	if src == "" {
		return nil, ErrNoSource
	}
	return MediaGroup{decorate(NewItem(src, title, media.KindOf(src), 0), el)}, nil
}

// BuildDeclaredGroup строит группу из элемента .portfolio-group.
// Пустой список дает пустую группу, которая не открывает просмотрщик.
func BuildDeclaredGroup(el *html.Node) MediaGroup {
	title, _ := attr(el, "data-title")
	if title == "" {
		if h3 := findItemInfoHeading(el); h3 != nil {
			title = strings.TrimSpace(textContent(h3))
		}
	}

	images, _ := attr(el, "data-images")
	parts := splitList(images)
	group := make(MediaGroup, 0, len(parts))
	for i, src := range parts {
		group = append(group, decorate(NewItem(src, title, media.KindOf(src), i), el))
	}
	return group
}

// ResolveSource возвращает data-src или src первого вложенного <img>
func ResolveSource(el *html.Node) string {
	if src, _ := attr(el, "data-src"); src != "" {
		return src
	}
	if img := findFirst(el, isElement(atom.Img)); img != nil {
		src, _ := attr(img, "src")
		return src
	}
	return ""
}

// ResolveTitle: data-title, затем текст ".item-info h3", затем alt первой картинки
func ResolveTitle(el *html.Node) string {
	if t, _ := attr(el, "data-title"); t != "" {
		return t
	}
	if h3 := findItemInfoHeading(el); h3 != nil {
		return strings.TrimSpace(textContent(h3))
	}
	if img := findFirst(el, isElement(atom.Img)); img != nil {
		alt, _ := attr(img, "alt")
		return alt
	}
	return ""
}

// IsInlineAudio сообщает, относится ли элемент к категории audio
func IsInlineAudio(el *html.Node) bool {
	c, _ := attr(el, "data-category")
	return c == "audio"
}

// decorate добавляет к элементу fallback-и и постер, объявленные на узле
func decorate(it MediaItem, el *html.Node) MediaItem {
	if fb, _ := attr(el, "data-fallback-images"); fb != "" {
		it.Fallbacks = splitList(fb)
	}
	if p, _ := attr(el, "data-poster"); p != "" {
		it.Poster = p
	} else if p, _ := attr(el, "data-thumb"); p != "" {
		it.Poster = p
	}
	return it
}

func lastDotPart(src string) string {
	if i := strings.LastIndexByte(src, '.'); i >= 0 {
		return src[i+1:]
	}
	return src
}

func attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// findFirst ищет первого потомка root в порядке документа
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findItemInfoHeading ищет первый h3 внутри .item-info
func findItemInfoHeading(el *html.Node) *html.Node {
	return findFirst(el, func(n *html.Node) bool {
		if !isElement(atom.H3)(n) {
			return false
		}
		for p := n.Parent; p != nil; p = p.Parent {
			if hasClass(p, "item-info") {
				return true
			}
			if p == el {
				break
			}
		}
		return false
	})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
