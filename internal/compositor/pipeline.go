package compositor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

const dataURLPrefix = "data:image/png;base64,"

// Base is stage one of a capture: the video frame alone, at output size.
// The overlay stage is only reachable from a Base.
type Base struct {
	img *image.NRGBA
}

// DrawBase scales the video frame to width x height and mirrors it when
// requested. Mirroring never reaches later stages.
func DrawBase(video image.Image, width, height int, mirrored bool) *Base {
	img := fit(video, width, height)
	if mirrored {
		img = imaging.FlipH(img)
	}
	return &Base{img: img}
}

func (b *Base) Bounds() image.Rectangle {
	return b.img.Bounds()
}

// DrawOverlay stretches the frame graphic over the whole photo and draws it
// on top of the video. The overlay's own alpha decides what shows through.
func (b *Base) DrawOverlay(overlay image.Image) *Composite {
	size := b.img.Bounds().Size()
	fitted := fit(overlay, size.X, size.Y)
	return &Composite{img: imaging.Overlay(b.img, fitted, image.Pt(0, 0), 1.0)}
}

func fit(img image.Image, width, height int) *image.NRGBA {
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Unframed finishes a capture without an overlay.
func (b *Base) Unframed() *Composite {
	return &Composite{img: imaging.Clone(b.img)}
}

// Composite is the flattened photo.
type Composite struct {
	img *image.NRGBA
}

func (c *Composite) Image() image.Image {
	return c.img
}

func (c *Composite) EncodePNG() ([]byte, error) {
	return encodePNG(c.img)
}

// EncodeDataURL returns the photo as a self-contained PNG data URL.
func (c *Composite) EncodeDataURL() (string, error) {
	return EncodeDataURL(c.img)
}

// EncodeDataURL encodes any image as a PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	raw, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("compositor.encodePNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDataURL reverses EncodeDataURL for any base64 image data URL.
func DecodeDataURL(dataURL string) (image.Image, error) {
	const op = "compositor.DecodeDataURL"

	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 || !strings.HasPrefix(dataURL, "data:image/") {
		return nil, fmt.Errorf("%s: not an image data URL", op)
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}
