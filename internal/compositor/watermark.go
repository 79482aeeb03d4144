package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Watermark stamps a short caption in the bottom-right corner of a photo.
type Watermark struct {
	text  string
	font  *truetype.Font
	color color.Color
}

func NewWatermark(text string) (*Watermark, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("compositor.NewWatermark: %w", err)
	}
	return &Watermark{text: text, font: f, color: color.NRGBA{R: 255, G: 255, B: 255, A: 230}}, nil
}

// Apply draws the caption onto a copy of img. The font size follows the
// photo height so the caption keeps its proportions at any capture scale.
func (w *Watermark) Apply(img image.Image) (*image.NRGBA, error) {
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)

	size := float64(b.Dy()) / 24
	if size < 8 {
		size = 8
	}
	margin := int(size)

	face := truetype.NewFace(w.font, &truetype.Options{Size: size, DPI: 72})
	defer face.Close()
	width := font.MeasureString(face, w.text).Ceil()

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(w.font)
	c.SetFontSize(size)
	c.SetClip(b)
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(w.color))

	x := b.Max.X - width - margin
	if x < b.Min.X {
		x = b.Min.X
	}
	pt := freetype.Pt(x, b.Max.Y-margin)
	if _, err := c.DrawString(w.text, pt); err != nil {
		return nil, fmt.Errorf("compositor.Watermark.Apply: %w", err)
	}
	return dst, nil
}
