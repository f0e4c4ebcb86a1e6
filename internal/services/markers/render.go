package markers

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
)

const supersample = 2

var (
	ringColor    = color.RGBA{R: 0xF5, G: 0xB7, B: 0x01, A: 0xFF}
	innerColor   = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	visitedColor = color.RGBA{R: 0x2E, G: 0x7D, B: 0x32, A: 0xFF}
)

var categoryColors = map[enums.PlaceCategory]color.RGBA{
	enums.PlaceCategoryMuseum:    {R: 0x8E, G: 0x24, B: 0xAA, A: 0xFF},
	enums.PlaceCategoryCastle:    {R: 0x6D, G: 0x4C, B: 0x41, A: 0xFF},
	enums.PlaceCategoryChurch:    {R: 0x39, G: 0x49, B: 0xAB, A: 0xFF},
	enums.PlaceCategoryMonument:  {R: 0x54, G: 0x6E, B: 0x7A, A: 0xFF},
	enums.PlaceCategoryPark:      {R: 0x43, G: 0xA0, B: 0x47, A: 0xFF},
	enums.PlaceCategoryNature:    {R: 0x00, G: 0x89, B: 0x7B, A: 0xFF},
	enums.PlaceCategoryViewpoint: {R: 0x1E, G: 0x88, B: 0xE5, A: 0xFF},
	enums.PlaceCategoryFood:      {R: 0xF4, G: 0x51, B: 0x1E, A: 0xFF},
	enums.PlaceCategoryOther:     {R: 0x75, G: 0x75, B: 0x75, A: 0xFF},
}

func categoryColor(category enums.PlaceCategory) color.RGBA {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return categoryColors[enums.PlaceCategoryOther]
}

// renderPin draws a map pin at size×size and returns it PNG-encoded.
// The pin is rasterized at a larger scale and downsampled for smoother edges.
func renderPin(size int, category enums.PlaceCategory, visited, favorite bool) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("marker size must be positive")
	}

	big := size * supersample
	canvas := image.NewRGBA(image.Rect(0, 0, big, big))

	w := float32(big)
	cx := w / 2
	r := w * 0.30
	cy := r + w*0.08
	tip := w * 0.96

	if favorite {
		fillCircle(canvas, cx, cy, r+w*0.07, ringColor)
	}

	body := categoryColor(category)
	fillCircle(canvas, cx, cy, r, body)
	fillPolygon(canvas, body,
		[2]float32{cx - r*0.82, cy + r*0.58},
		[2]float32{cx, tip},
		[2]float32{cx + r*0.82, cy + r*0.58},
	)

	fillCircle(canvas, cx, cy, r*0.48, innerColor)
	if visited {
		fillCircle(canvas, cx, cy, r*0.30, visitedColor)
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode marker png: %w", err)
	}
	return buf.Bytes(), nil
}

func fillCircle(dst *image.RGBA, cx, cy, r float32, c color.RGBA) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	// four cubic arcs, k = 4/3*(sqrt(2)-1)
	k := 0.5523 * r
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func fillPolygon(dst *image.RGBA, c color.RGBA, points ...[2]float32) {
	if len(points) < 3 {
		return
	}
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	z.MoveTo(points[0][0], points[0][1])
	for _, p := range points[1:] {
		z.LineTo(p[0], p[1])
	}
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}
