package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/reel/internal/colour"
)

func sampleRanking() colour.Ranking {
	return colour.Ranking{
		{Colour: colour.RGB{R: 200, G: 30, B: 30}, Count: 12},
		{Colour: colour.RGB{R: 30, G: 30, B: 200}, Count: 4},
	}
}

func TestCalculateContentSeed(t *testing.T) {
	a := CalculateContentSeed(sampleRanking())
	b := CalculateContentSeed(sampleRanking())
	if a != b {
		t.Errorf("CalculateContentSeed() not deterministic: %d != %d", a, b)
	}

	changed := sampleRanking()
	changed[1].Count++
	if CalculateContentSeed(changed) == a {
		t.Error("CalculateContentSeed() ignored a count change")
	}

	recoloured := sampleRanking()
	recoloured[0].Colour.G++
	if CalculateContentSeed(recoloured) == a {
		t.Error("CalculateContentSeed() ignored a colour change")
	}
}

func TestCalculateFilepathSeed(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}

	rel := CalculateFilepathSeed("film.mp4")
	abs := CalculateFilepathSeed(filepath.Join(wd, "film.mp4"))
	if rel != abs {
		t.Errorf("relative and absolute paths gave different seeds: %d != %d", rel, abs)
	}
	if CalculateFilepathSeed("other.mp4") == rel {
		t.Error("different paths gave the same seed")
	}
}

func TestCalculate(t *testing.T) {
	manual := int64(1234)

	tests := []struct {
		name    string
		path    string
		config  Config
		want    *int64
		wantErr bool
	}{
		{name: "content", config: Config{Mode: ModeContent}},
		{name: "filepath", path: "film.mp4", config: Config{Mode: ModeFilepath}},
		{name: "filepath without path", config: Config{Mode: ModeFilepath}, wantErr: true},
		{name: "manual", config: Config{Mode: ModeManual, Value: &manual}, want: &manual},
		{name: "manual without value", config: Config{Mode: ModeManual}, wantErr: true},
		{name: "random", config: Config{Mode: ModeRandom}},
		{name: "unknown", config: Config{Mode: "lucky"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(sampleRanking(), tt.path, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Calculate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != nil && got != *tt.want {
				t.Errorf("Calculate() = %d, want %d", got, *tt.want)
			}
		})
	}
}

func TestCalculateContentMatchesHelper(t *testing.T) {
	got, err := Calculate(sampleRanking(), "", Config{Mode: ModeContent})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := CalculateContentSeed(sampleRanking()); got != want {
		t.Errorf("Calculate() = %d, want %d", got, want)
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range ValidModes() {
		got, err := ParseMode(string(mode))
		if err != nil {
			t.Errorf("ParseMode(%q) error = %v", mode, err)
		}
		if got != mode {
			t.Errorf("ParseMode(%q) = %q", mode, got)
		}
	}

	if _, err := ParseMode("Content"); err == nil {
		t.Error("ParseMode() should be case sensitive")
	}
	if _, err := ParseMode(""); err == nil {
		t.Error("ParseMode(\"\") expected error")
	}
}
