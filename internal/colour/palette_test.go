package colour

import (
	"encoding/json"
	"image/color"
	"math"
	"testing"
)

func TestToRGB(t *testing.T) {
	tests := []struct {
		name  string
		color color.Color
		want  RGB
	}{
		{
			name:  "red",
			color: color.RGBA{R: 255, G: 0, B: 0, A: 255},
			want:  RGB{R: 255, G: 0, B: 0},
		},
		{
			name:  "blue from NRGBA",
			color: color.NRGBA{R: 0, G: 0, B: 255, A: 255},
			want:  RGB{R: 0, G: 0, B: 255},
		},
		{
			name:  "grey",
			color: color.Gray{Y: 128},
			want:  RGB{R: 128, G: 128, B: 128},
		},
		{
			name:  "ycbcr white",
			color: color.YCbCr{Y: 255, Cb: 128, Cr: 128},
			want:  RGB{R: 255, G: 255, B: 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRGB(tt.color); got != tt.want {
				t.Errorf("ToRGB() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRGBHexAndString(t *testing.T) {
	tests := []struct {
		rgb     RGB
		wantHex string
		wantStr string
	}{
		{RGB{R: 255, G: 0, B: 0}, "#ff0000", "rgb(255, 0, 0)"},
		{RGB{R: 26, G: 43, B: 60}, "#1a2b3c", "rgb(26, 43, 60)"},
		{RGB{}, "#000000", "rgb(0, 0, 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.wantHex, func(t *testing.T) {
			if got := tt.rgb.Hex(); got != tt.wantHex {
				t.Errorf("Hex() = %q, want %q", got, tt.wantHex)
			}
			if got := tt.rgb.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestRGBHSV(t *testing.T) {
	tests := []struct {
		name  string
		rgb   RGB
		wantH float64
		wantS float64
		wantV float64
	}{
		{"red", RGB{R: 255}, 0, 1, 1},
		{"blue", RGB{B: 255}, 240, 1, 1},
		{"grey", RGB{R: 128, G: 128, B: 128}, 0, 0, 128.0 / 255.0},
		{"dark green", RGB{G: 102}, 120, 1, 0.4},
		{"pastel", RGB{R: 255, G: 204, B: 204}, 0, 0.2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := tt.rgb.HSV()
			if math.Abs(h-tt.wantH) > 1e-6 || math.Abs(s-tt.wantS) > 1e-6 || math.Abs(v-tt.wantV) > 1e-6 {
				t.Errorf("HSV() = (%g, %g, %g), want (%g, %g, %g)", h, s, v, tt.wantH, tt.wantS, tt.wantV)
			}
		})
	}
}

func TestRankingTotalAndTop(t *testing.T) {
	r := Ranking{
		{Colour: RGB{R: 255}, Count: 5},
		{Colour: RGB{G: 255}, Count: 3},
		{Colour: RGB{B: 255}, Count: 1},
	}

	if got := r.Total(); got != 9 {
		t.Errorf("Total() = %d, want 9", got)
	}
	if got := len(r.Top(2)); got != 2 {
		t.Errorf("Top(2) length = %d, want 2", got)
	}
	if got := len(r.Top(10)); got != 3 {
		t.Errorf("Top(10) length = %d, want 3", got)
	}
	if got := len(r.Top(-1)); got != 3 {
		t.Errorf("Top(-1) length = %d, want 3", got)
	}
	if got := (Ranking{}).Total(); got != 0 {
		t.Errorf("empty Total() = %d, want 0", got)
	}
}

func TestClusterJSON(t *testing.T) {
	clusters := []Cluster{
		{
			Centroid:    RGB{R: 250, G: 10, B: 10},
			Assignments: []Frequency{{Colour: RGB{R: 255}, Count: 3}, {Colour: RGB{R: 240, G: 20}, Count: 1}},
		},
		{Centroid: RGB{B: 200}, Assignments: []Frequency{}},
	}

	out := ToClusterJSON(clusters, 8)
	if len(out) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(out))
	}
	if out[0].Centroid.Hex != "#fa0a0a" {
		t.Errorf("Centroid hex = %q, want #fa0a0a", out[0].Centroid.Hex)
	}
	if out[0].Centroid.Count != 4 || out[0].Colours != 2 {
		t.Errorf("Cluster 0 count/colours = %d/%d, want 4/2", out[0].Centroid.Count, out[0].Colours)
	}
	if out[0].Centroid.Share != 0.5 {
		t.Errorf("Cluster 0 share = %g, want 0.5", out[0].Centroid.Share)
	}
	if out[1].Centroid.Share != 0 || out[1].Colours != 0 {
		t.Errorf("Empty cluster share/colours = %g/%d, want 0/0", out[1].Centroid.Share, out[1].Colours)
	}

	data, err := json.Marshal(out[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"centroid":{"hex":"#fa0a0a","rgb":{"r":250,"g":10,"b":10},"count":4,"share":0.5},"colours":2}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestToColourJSONZeroTotal(t *testing.T) {
	out := ToColourJSON(Ranking{{Colour: RGB{R: 1}, Count: 1}}, 0)
	if out[0].Share != 0 {
		t.Errorf("Share with zero total = %g, want 0", out[0].Share)
	}
}
