package generator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/xxxsen/artgan/internal/network"
)

// ToImage rescales a channel-first tensor in [-1, 1] to 8-bit pixels and
// reorders it to HWC.
func ToImage(t *network.Tensor) (*image.RGBA, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	c, h, w := t.Shape[0], t.Shape[1], t.Shape[2]
	if c != 1 && c != 3 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", network.ErrShape, c)
	}
	plane := h * w
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*w + x
			r := toByte(t.Data[off])
			g, b := r, r
			if c == 3 {
				g = toByte(t.Data[plane+off])
				b = toByte(t.Data[2*plane+off])
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

func toByte(v float32) uint8 {
	f := float64(v)*127.5 + 128
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
