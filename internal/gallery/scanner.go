package gallery

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// EntryType тип записи галереи на странице
type EntryType string

const (
	EntryItem        EntryType = "item"         // .portfolio-item
	EntryGroup       EntryType = "group"        // .portfolio-group
	EntryInlineAudio EntryType = "inline_audio" // data-category="audio", проигрывается на странице
)

// Entry запись галереи и группа, которую она открывает
type Entry struct {
	Type      EntryType  `json:"type"`
	Title     string     `json:"title"`
	Source    string     `json:"source,omitempty"`
	Clickable bool       `json:"clickable"`
	Group     MediaGroup `json:"group"`
}

// Page записи галереи одной HTML страницы в порядке документа
type Page struct {
	Entries []Entry `json:"entries"`
}

// ScanPage разбирает HTML страницу и собирает ее записи галереи.
// Элементы без источника пропускаются.
func ScanPage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	page := &Page{Entries: []Entry{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if entry, ok := scanElement(n); ok {
				page.Entries = append(page.Entries, entry)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page, nil
}

func scanElement(n *html.Node) (Entry, bool) {
	switch {
	case hasClass(n, "portfolio-group"):
		group := BuildDeclaredGroup(n)
		title, _ := attr(n, "data-title")
		if len(group) > 0 {
			title = group[0].Title
		}
		return Entry{
			Type:      EntryGroup,
			Title:     title,
			Clickable: len(group) > 0,
			Group:     group,
		}, true

	case hasClass(n, "portfolio-item"):
		src := ResolveSource(n)
		if src == "" {
			return Entry{}, false
		}
		if IsInlineAudio(n) {
			return Entry{
				Type:   EntryInlineAudio,
				Title:  ResolveTitle(n),
				Source: src,
				Group:  MediaGroup{},
			}, true
		}
		group, err := BuildGroup(n)
		if err != nil {
			return Entry{}, false
		}
		return Entry{
			Type:      EntryItem,
			Title:     ResolveTitle(n),
			Source:    src,
			Clickable: len(group) > 0,
			Group:     group,
		}, true
	}
	return Entry{}, false
}

// Groups возвращает группы всех записей, открывающих просмотрщик
func (p *Page) Groups() []MediaGroup {
	var groups []MediaGroup
	for _, e := range p.Entries {
		if e.Clickable {
			groups = append(groups, e.Group)
		}
	}
	return groups
}
