package imgview

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hajimehoshi/ebiten/v2"
)

// Screenshot queues a labeled screenshot, captured after the next Draw.
// The PNG is written to ScreenshotDir with a timestamped filename.
func (v *Viewport) Screenshot(label string) {
	v.screenshotQueue = append(v.screenshotQueue, label)
	v.needsRedraw = true
}

// PendingScreenshots reports whether screenshots are queued.
func (v *Viewport) PendingScreenshots() bool { return len(v.screenshotQueue) > 0 }

// FlushScreenshots writes img once for every queued label and clears the
// queue. It returns the written paths.
func (v *Viewport) FlushScreenshots(img image.Image) []string {
	if len(v.screenshotQueue) == 0 {
		return nil
	}
	defer func() { v.screenshotQueue = v.screenshotQueue[:0] }()

	if err := os.MkdirAll(v.ScreenshotDir, 0o755); err != nil {
		v.log.Error("screenshot: mkdir", "dir", v.ScreenshotDir, "err", err)
		return nil
	}

	stamp := time.Now().Format("20060102_150405")
	paths := make([]string, 0, len(v.screenshotQueue))
	for _, label := range v.screenshotQueue {
		path := filepath.Join(v.ScreenshotDir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, img); err != nil {
			v.log.Error("screenshot", "err", err)
			continue
		}
		v.log.Info("screenshot written", "path", path)
		paths = append(paths, path)
	}
	return paths
}

// readScreen copies an ebiten image into a straight-alpha NRGBA.
func readScreen(screen *ebiten.Image) *image.NRGBA {
	bounds := screen.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 4*w*h)
	screen.ReadPixels(pixels)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	unpremultiply(img.Pix, pixels)
	return img
}

// unpremultiply converts premultiplied RGBA bytes in src to straight alpha
// in dst.
func unpremultiply(dst, src []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		r, g, b, a := src[i], src[i+1], src[i+2], src[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, a
	}
}

// writePNG encodes img as a PNG file at path.
func writePNG(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
