package media

import (
	"regexp"
	"strings"
)

var absoluteURL = regexp.MustCompile(`(?i)^(data:|blob:|https?:|file:)`)

// IsAbsolute сообщает, является ли src абсолютным URL (data:, blob:, http(s):, file:)
func IsAbsolute(src string) bool {
	return absoluteURL.MatchString(src)
}

// NormalizeURL кодирует каждый сегмент пути как encodeURIComponent,
// сохраняя query-строку без изменений. Абсолютные URL возвращаются как есть.
//
// Уже закодированные последовательности %XX не кодируются повторно,
// поэтому NormalizeURL(NormalizeURL(s)) == NormalizeURL(s).
func NormalizeURL(src string) string {
	if src == "" || IsAbsolute(src) {
		return src
	}

	path, query := src, ""
	if i := strings.IndexByte(src, '?'); i >= 0 {
		path, query = src[:i], src[i:]
	}

	segments := strings.Split(strings.ReplaceAll(path, `\`, "/"), "/")
	for i, s := range segments {
		segments[i] = encodeSegment(s)
	}
	return strings.Join(segments, "/") + query
}

const upperhex = "0123456789ABCDEF"

func encodeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteString(s[i : i+3])
			i += 2
		case unreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}

// unreserved символы, которые encodeURIComponent оставляет как есть
func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
