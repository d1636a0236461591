package media

import (
	"regexp"
	"strings"
)

// Kind тип медиа-элемента галереи
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Ext возвращает расширение файла из URL без точки, в нижнем регистре,
// без query-строки. Для "clip.MP4?v=2" вернет "mp4".
func Ext(src string) string {
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src = src[:i]
	}
	i := strings.LastIndexByte(src, '.')
	if i < 0 || strings.ContainsAny(src[i:], `/\`) {
		return ""
	}
	return strings.ToLower(src[i+1:])
}

// KindFromExt определяет тип по расширению: mp4/webm/ogg - видео,
// mp3 - аудио, остальное - изображение
func KindFromExt(ext string) Kind {
	switch strings.ToLower(ext) {
	case "mp4", "webm", "ogg":
		return KindVideo
	case "mp3":
		return KindAudio
	default:
		return KindImage
	}
}

// KindOf определяет тип по URL
func KindOf(src string) Kind {
	return KindFromExt(Ext(src))
}

// SourceMIME возвращает MIME для <source> найденного URL
func SourceMIME(kind Kind, src string) string {
	switch kind {
	case KindVideo:
		switch Ext(src) {
		case "webm":
			return "video/webm"
		case "ogg", "ogv":
			return "video/ogg"
		default:
			return "video/mp4"
		}
	case KindAudio:
		return "audio/mpeg"
	default:
		return ""
	}
}

var trailingExt = regexp.MustCompile(`\.[^/.]+$`)

// ReplaceExt заменяет хвостовое расширение src на ext ("a/clip.mp4" -> "a/clip.jpg")
func ReplaceExt(src, ext string) string {
	return trailingExt.ReplaceAllString(src, "") + ext
}
