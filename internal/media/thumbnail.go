package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Thumbnailer генерирует превью для ленты миниатюр и постеры для видео
type Thumbnailer struct {
	size    int
	quality int
	ffmpeg  string
}

// NewThumbnailer создает генератор превью
func NewThumbnailer(size, quality int, ffmpeg string) *Thumbnailer {
	if size <= 0 {
		size = 300
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Thumbnailer{size: size, quality: quality, ffmpeg: ffmpeg}
}

// ThumbPath возвращает путь превью для изображения: assets/a.png -> assets/thumbs/a.jpg
func ThumbPath(src string) string {
	dir, name := filepath.Split(src)
	return filepath.Join(dir, "thumbs", ReplaceExt(name, ".jpg"))
}

// ThumbURLPath то же для пути из разметки сайта (разделитель /, без query):
// "assets/a b.png?v=2" -> "assets/thumbs/a b.jpg"
func ThumbURLPath(src string) string {
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src = src[:i]
	}
	dir, name := path.Split(src)
	return dir + "thumbs/" + ReplaceExt(name, ".jpg")
}

// Thumbnail создает превью изображения src в dst.
// Существующее превью новее исходника не перегенерируется.
func (t *Thumbnailer) Thumbnail(src, dst string) error {
	if upToDate(src, dst) {
		return nil
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	// Применяем ориентацию из EXIF
	if orientation := readOrientation(src); orientation > 1 {
		img = applyOrientation(img, orientation)
	}

	// Ресайзим с сохранением пропорций
	return t.writeJPEG(imaging.Fit(img, t.size, t.size, imaging.Lanczos), dst)
}

// PosterFrame извлекает кадр из видео через ffmpeg и сохраняет его как JPEG
func (t *Thumbnailer) PosterFrame(ctx context.Context, video, dst string) error {
	if upToDate(video, dst) {
		return nil
	}

	// ffmpeg -i video.mp4 -ss 00:00:01 -vframes 1 -f image2pipe -vcodec mjpeg -
	output, err := exec.CommandContext(ctx, t.ffmpeg,
		"-i", video,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	).Output()
	if err != nil || len(output) == 0 {
		// Пробуем с начала файла, если 1 секунда недоступна
		output, err = exec.CommandContext(ctx, t.ffmpeg,
			"-i", video,
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-",
		).Output()
		if err != nil {
			return fmt.Errorf("ffmpeg failed: %w", err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(output))
	if err != nil {
		return fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}

	return t.writeJPEG(img, dst)
}

// FfmpegAvailable проверяет наличие ffmpeg
func (t *Thumbnailer) FfmpegAvailable() bool {
	_, err := exec.LookPath(t.ffmpeg)
	return err == nil
}

func (t *Thumbnailer) writeJPEG(img image.Image, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: t.quality}); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		// Недописанный файл не должен считаться готовым превью
		os.Remove(dst)
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return nil
}

func upToDate(src, dst string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	di, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return !di.ModTime().Before(si.ModTime())
}

// readOrientation читает EXIF Orientation, 0 если тега нет
func readOrientation(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Не все файлы имеют EXIF, это нормально
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

// applyOrientation применяет EXIF ориентацию к изображению
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
