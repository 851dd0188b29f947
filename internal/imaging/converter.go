// internal/imaging/converter.go
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageLoadError reports a logo that could not be fetched or decoded.
// Callers print without the logo instead of failing the job.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", shortSource(e.Source), e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

var errEmptySource = errors.New("empty image reference")

// LogoRequest identifies a logo to rasterize. OwnerID and Version are
// optional and only used for caching.
type LogoRequest struct {
	Ref      string
	OwnerID  string
	Version  string
	MaxWidth int
}

// Loader produces printable bitmaps for logo references
type Loader interface {
	LoadLogo(ctx context.Context, req LogoRequest) (*Bitmap, error)
}

// Converter loads raster images from URLs, data URIs or files and converts
// them into printable bitmaps.
type Converter struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// NewConverter creates a converter. A nil client gets a client with the given timeout.
func NewConverter(client *http.Client, timeout time.Duration, maxBytes int64, logger *zap.Logger) *Converter {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	return &Converter{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger.With(zap.String("component", "imaging")),
	}
}

// Convert loads ref and converts it to a bitmap no wider than maxWidth
func (c *Converter) Convert(ctx context.Context, ref string, maxWidth int) (*Bitmap, error) {
	if maxWidth <= 0 {
		return nil, &ImageLoadError{Source: ref, Err: fmt.Errorf("invalid max width %d", maxWidth)}
	}

	img, err := c.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	bmp := ToBitmap(img, maxWidth)
	c.logger.Debug("Image converted",
		zap.String("source", shortSource(ref)),
		zap.Int("width", bmp.Width),
		zap.Int("height", bmp.Height),
	)
	return bmp, nil
}

// LoadLogo implements Loader without caching
func (c *Converter) LoadLogo(ctx context.Context, req LogoRequest) (*Bitmap, error) {
	return c.Convert(ctx, req.Ref, req.MaxWidth)
}

// Load fetches and decodes ref
func (c *Converter) Load(ctx context.Context, ref string) (image.Image, error) {
	raw, err := c.fetch(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, &ImageLoadError{Source: ref, Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &ImageLoadError{Source: ref, Err: fmt.Errorf("decode: %w", err)}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &ImageLoadError{Source: ref, Err: errors.New("image has no pixels")}
	}
	return img, nil
}

// fetch returns the encoded image bytes behind ref
func (c *Converter) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, errEmptySource
	case strings.HasPrefix(ref, "data:"):
		raw, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		if int64(len(raw)) > c.maxBytes {
			return nil, fmt.Errorf("image exceeds %d bytes", c.maxBytes)
		}
		return raw, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return c.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		return c.readFile(u.Path)
	default:
		return c.readFile(ref)
	}
}

func (c *Converter) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return c.readLimited(resp.Body)
}

func (c *Converter) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.readLimited(f)
}

func (c *Converter) readLimited(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > c.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", c.maxBytes)
	}
	return raw, nil
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>
func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}

// shortSource keeps data URIs out of logs and error messages
func shortSource(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		if i := strings.IndexByte(ref, ','); i >= 0 {
			return ref[:i] + ",…"
		}
	}
	if len(ref) > 128 {
		return ref[:128] + "…"
	}
	return ref
}
