package colour

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// coverage is the share of one source row or column that falls inside a
// destination pixel.
type coverage struct {
	index  int
	weight float64
}

// areaCoverage maps each of dst destination pixels to the source pixels its
// footprint overlaps along one axis. A source pixel straddling a boundary is
// split between both neighbours in proportion to the overlap.
func areaCoverage(src, dst int) [][]coverage {
	scale := float64(src) / float64(dst)
	spans := make([][]coverage, dst)
	for i := range spans {
		lo, hi := float64(i)*scale, float64(i+1)*scale
		for s := int(lo); s < src && float64(s) < hi; s++ {
			w := math.Min(hi, float64(s+1)) - math.Max(lo, float64(s))
			if w > 1e-9 {
				spans[i] = append(spans[i], coverage{index: s, weight: w})
			}
		}
	}
	return spans
}

// areaAverage shrinks src into dst. Every destination pixel is the mean of
// the source area under it, weighted by fractional coverage.
func areaAverage(dst, src *image.RGBA) {
	sb, db := src.Bounds(), dst.Bounds()
	cols := areaCoverage(sb.Dx(), db.Dx())
	rows := areaCoverage(sb.Dy(), db.Dy())

	for dy, row := range rows {
		for dx, col := range cols {
			var sum [4]float64
			var area float64
			for _, ry := range row {
				for _, cx := range col {
					w := ry.weight * cx.weight
					off := src.PixOffset(sb.Min.X+cx.index, sb.Min.Y+ry.index)
					for ch := 0; ch < 4; ch++ {
						sum[ch] += w * float64(src.Pix[off+ch])
					}
					area += w
				}
			}
			off := dst.PixOffset(db.Min.X+dx, db.Min.Y+dy)
			for ch := 0; ch < 4; ch++ {
				dst.Pix[off+ch] = uint8(math.Min(255, math.Round(sum[ch]/area)))
			}
		}
	}
}

// toRGBA returns img as an *image.RGBA, converting only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// ScaledWidth returns the width that keeps the aspect ratio of a w×h image
// scaled to the given height. It is never less than 1.
func ScaledWidth(w, h, height int) int {
	if h == 0 {
		return 0
	}
	return max(int(math.Round(float64(height)*float64(w)/float64(h))), 1)
}

// Resize scales img to the given height preserving aspect ratio.
// Shrinking averages source areas; enlarging interpolates bilinearly.
// The result is always a fresh *image.RGBA with a zero origin.
func Resize(img image.Image, height int) *image.RGBA {
	sb := img.Bounds()
	width := ScaledWidth(sb.Dx(), sb.Dy(), height)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	switch {
	case width == sb.Dx() && height == sb.Dy():
		draw.Draw(dst, dst.Bounds(), img, sb.Min, draw.Src)
	case height < sb.Dy():
		areaAverage(dst, toRGBA(img))
	default:
		draw.BiLinear.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)
	}
	return dst
}
