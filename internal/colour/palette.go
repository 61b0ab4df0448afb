// Package colour provides frame colour extraction, frequency ranking and
// weighted k-means clustering of video colour palettes.
package colour

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB represents a colour in RGB format.
// It is comparable and is used directly as a map key.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as a hex string (e.g., "#1a2b3c").
func (rgb RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// HSV returns hue (0-360), saturation (0-1) and value (0-1).
func (rgb RGB) HSV() (h, s, v float64) {
	return rgb.colorful().Hsv()
}

// RGBA implements color.Color so an RGB can be handed to image APIs.
func (rgb RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}.RGBA()
}

// packed returns the colour as a 24-bit integer, used for stable ordering.
func (rgb RGB) packed() uint32 {
	return uint32(rgb.R)<<16 | uint32(rgb.G)<<8 | uint32(rgb.B)
}

func (rgb RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(rgb.R) / 255.0,
		G: float64(rgb.G) / 255.0,
		B: float64(rgb.B) / 255.0,
	}
}

// ToRGB converts a color.Color to RGB.
func ToRGB(c color.Color) RGB {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return RGB{R: rgba.R, G: rgba.G, B: rgba.B}
}

// Frequency pairs a colour with the number of times it was observed.
type Frequency struct {
	Colour RGB `json:"colour"`
	Count  int `json:"count"`
}

// Ranking is a list of distinct colours ordered by count, most frequent first.
type Ranking []Frequency

// Total returns the sum of all counts in the ranking.
func (r Ranking) Total() int {
	total := 0
	for _, f := range r {
		total += f.Count
	}
	return total
}

// Top returns at most n entries from the head of the ranking.
func (r Ranking) Top(n int) Ranking {
	if n < 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

// Cluster is one group produced by the clusterer.
// Centroid is the weighted mean of the assigned colours and need not be
// one of them.
type Cluster struct {
	Centroid    RGB         `json:"centroid"`
	Assignments []Frequency `json:"assignments"`
}

// Weight returns the total count of all colours assigned to the cluster.
func (c Cluster) Weight() int {
	return Ranking(c.Assignments).Total()
}

// ColourJSON represents a colour in JSON output format.
type ColourJSON struct {
	Hex   string  `json:"hex"`
	RGB   RGB     `json:"rgb"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// ClusterJSON represents a cluster in JSON output format.
type ClusterJSON struct {
	Centroid ColourJSON `json:"centroid"`
	Colours  int        `json:"colours"`
}

// ToColourJSON converts ranking entries to their JSON form.
// Share is each count relative to total, or zero when total is zero.
func ToColourJSON(r Ranking, total int) []ColourJSON {
	out := make([]ColourJSON, len(r))
	for i, f := range r {
		out[i] = ColourJSON{
			Hex:   f.Colour.Hex(),
			RGB:   f.Colour,
			Count: f.Count,
			Share: share(f.Count, total),
		}
	}
	return out
}

// ToClusterJSON converts clusters to their JSON form.
func ToClusterJSON(clusters []Cluster, total int) []ClusterJSON {
	out := make([]ClusterJSON, len(clusters))
	for i, c := range clusters {
		w := c.Weight()
		out[i] = ClusterJSON{
			Centroid: ColourJSON{
				Hex:   c.Centroid.Hex(),
				RGB:   c.Centroid,
				Count: w,
				Share: share(w, total),
			},
			Colours: len(c.Assignments),
		}
	}
	return out
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
