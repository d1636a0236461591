package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// FormatInfo содержит информацию о формате файла
type FormatInfo struct {
	DetectedMIME      string // MIME тип определенный по содержимому
	DetectedExtension string // Расширение определенное по содержимому
	ClaimedExtension  string // Расширение из имени файла
	IsValid           bool   // Соответствует ли содержимое расширению
	Error             string // Описание проблемы если есть
}

// Расширения, которые filetype сообщает иначе, чем они пишутся в именах файлов
var extAliases = map[string]string{
	".jpeg": ".jpg",
	".tif":  ".tiff",
	".ogv":  ".ogg",
}

// DetectFileFormat определяет реальный формат медиа-файла по magic bytes
func DetectFileFormat(path string) (*FormatInfo, error) {
	info := &FormatInfo{
		ClaimedExtension: strings.ToLower(filepath.Ext(path)),
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	head, err := ReadHead(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		info.Error = "unknown file format"
		return info, nil
	}

	info.DetectedMIME = kind.MIME.Value
	info.DetectedExtension = "." + kind.Extension

	claimed := info.ClaimedExtension
	if alias, ok := extAliases[claimed]; ok {
		claimed = alias
	}
	info.IsValid = strings.EqualFold(claimed, info.DetectedExtension)
	if !info.IsValid {
		info.Error = fmt.Sprintf("extension mismatch: file claims %s but contains %s (%s)",
			info.ClaimedExtension, info.DetectedExtension, info.DetectedMIME)
	}

	return info, nil
}

// ReadHead читает первые 512 байт - достаточно для filetype
func ReadHead(r io.Reader) ([]byte, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return head[:n], nil
}

// IsPlayable сообщает, похоже ли содержимое на видео или аудио
func IsPlayable(head []byte) bool {
	return filetype.IsVideo(head) || filetype.IsAudio(head)
}

// IsImageContent сообщает, похоже ли содержимое на изображение
func IsImageContent(head []byte) bool {
	return filetype.IsImage(head)
}
