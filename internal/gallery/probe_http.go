package gallery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/sitio/sitio/internal/media"
)

// HTTPProber проверяет кандидатов HTTP запросами относительно базового URL
type HTTPProber struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPProber создает prober для сайта по адресу base (например http://localhost:3000/)
func NewHTTPProber(base string, client *http.Client) (*HTTPProber, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPProber{client: client, base: u}, nil
}

// NewFileProber проверяет кандидатов по файлам в каталоге сайта root
func NewFileProber(root string) *HTTPProber {
	transport := &http.Transport{}
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir(root)))
	return &HTTPProber{
		client: &http.Client{Transport: transport},
		base:   &url.URL{Scheme: "file", Path: "/"},
	}
}

// ProbeImage скачивает начало файла и проверяет, что это изображение
func (p *HTTPProber) ProbeImage(ctx context.Context, raw string) error {
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		data, err := decodeDataURL(raw)
		if err != nil {
			return err
		}
		return checkImage(bufio.NewReader(bytes.NewReader(data)), "")
	}

	resp, err := p.do(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return checkImage(bufio.NewReader(resp.Body), resp.Header.Get("Content-Type"))
}

// ProbeHead делает HEAD запрос
func (p *HTTPProber) ProbeHead(ctx context.Context, raw string) (bool, error) {
	resp, err := p.do(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed, resp.StatusCode == http.StatusNotImplemented:
		return false, ErrHeadUnsupported
	case resp.StatusCode/100 == 2:
		return true, nil
	default:
		return false, nil
	}
}

// ProbeMetadata читает первые байты файла и проверяет, что это видео или аудио
func (p *HTTPProber) ProbeMetadata(ctx context.Context, raw string) error {
	resp, err := p.do(ctx, http.MethodGet, raw, http.Header{"Range": {"bytes=0-511"}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	head, err := media.ReadHead(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read media header: %w", err)
	}
	if !media.IsPlayable(head) {
		return errors.New("not a video or audio file")
	}
	return nil
}

func (p *HTTPProber) do(ctx context.Context, method, raw string, header http.Header) (*http.Response, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	target := p.base.ResolveReference(ref)

	switch target.Scheme {
	case "http", "https", "file":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", target.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return p.client.Do(req)
}

func checkImage(r *bufio.Reader, contentType string) error {
	if strings.HasPrefix(contentType, "image/svg") {
		return nil
	}

	// Peek не сдвигает reader, DecodeConfig читает с начала
	head, _ := r.Peek(512)
	if _, _, err := image.DecodeConfig(r); err == nil {
		return nil
	}
	if filetype.IsImage(head) {
		// Форматы без декодера в stdlib (webp, avif, ...)
		return nil
	}
	return errors.New("not a decodable image")
}

// decodeDataURL разбирает data:[<mediatype>][;base64],<data>
func decodeDataURL(raw string) ([]byte, error) {
	meta, data, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return base64.StdEncoding.DecodeString(data)
	}
	s, err := url.PathUnescape(data)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
