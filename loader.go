package imgview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Loader fetches and decodes the image behind a URL. Load runs on a
// background goroutine and must return promptly once ctx is cancelled.
type Loader interface {
	Load(ctx context.Context, rawURL string) (image.Image, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, rawURL string) (image.Image, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, rawURL string) (image.Image, error) {
	return f(ctx, rawURL)
}

// DefaultLoader reads local paths, file:// URLs and http(s) URLs and decodes
// PNG, JPEG, GIF and WebP. JPEG EXIF orientation is applied.
type DefaultLoader struct {
	// Client is used for http(s) URLs. nil means http.DefaultClient.
	Client *http.Client
}

// Load implements Loader.
func (l DefaultLoader) Load(ctx context.Context, rawURL string) (image.Image, error) {
	data, err := l.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeImage(data)
}

func (l DefaultLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(rawURL)
	// A single-letter scheme is a Windows drive letter.
	if err != nil || len(u.Scheme) <= 1 {
		return readFile(rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return readFile(u.Path)
	case "http", "https":
		return l.get(ctx, u.String())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (l DefaultLoader) get(ctx context.Context, rawURL string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// decodeImage decodes any registered format and applies EXIF orientation to
// JPEGs.
func decodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format == "jpeg" {
		img = applyOrientation(img, exifOrientation(data))
	}
	return img, nil
}

// exifOrientation returns the EXIF orientation tag (1-8), or 1 when the
// data carries none.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation undoes the camera rotation described by an EXIF
// orientation value.
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

// slotID names one of the viewport's decode slots.
type slotID uint8

const (
	slotPrimary slotID = iota
	slotCompare
)

func (s slotID) String() string {
	if s == slotCompare {
		return "compare"
	}
	return "primary"
}

// decodeResult is sent from a decode goroutine back to the UI goroutine.
type decodeResult struct {
	slot slotID
	seq  uint64
	url  string
	img  image.Image
	err  error
}

// imageSlot tracks the requested URL and the displayed bitmap of one image.
// The bitmap is replaced wholesale on a successful decode and never mutated.
type imageSlot struct {
	url     string
	seq     uint64 // bumped by every request
	loading bool
	bitmap  Bitmap
	cancel  context.CancelFunc
}

// request starts decoding rawURL, superseding any decode in flight. The
// result is sent on results unless done is closed first.
func (s *imageSlot) request(parent context.Context, id slotID, loader Loader, rawURL string, results chan<- decodeResult, done <-chan struct{}) {
	s.cancelPending()
	s.url = rawURL
	s.seq++
	s.loading = true

	seq := s.seq
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	go func() {
		img, err := loader.Load(ctx, rawURL)
		select {
		case results <- decodeResult{slot: id, seq: seq, url: rawURL, img: img, err: err}:
		case <-done:
		}
	}()
}

// accept reports whether r answers the latest request. A superseded
// request for the same URL is stale too.
func (s *imageSlot) accept(r decodeResult) bool {
	return s.loading && r.seq == s.seq && r.url == s.url
}

// clear drops the bitmap and forgets the request, so late results are stale.
func (s *imageSlot) clear() Bitmap {
	s.cancelPending()
	old := s.bitmap
	s.url = ""
	s.loading = false
	s.bitmap = nil
	return old
}

func (s *imageSlot) cancelPending() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// releaseBitmap frees GPU-backed bitmaps such as *ebiten.Image.
func releaseBitmap(b Bitmap) {
	if d, ok := b.(interface{ Deallocate() }); ok {
		d.Deallocate()
	}
}
