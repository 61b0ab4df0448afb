package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/reel/internal/colour"
	"github.com/jmylchreest/reel/internal/pipeline"
)

// Output formats for the extract command.
const (
	FormatText = "text"
	FormatHex  = "hex"
	FormatJSON = "json"
)

// ValidFormats returns a list of valid output format names.
func ValidFormats() []string {
	return []string{FormatText, FormatHex, FormatJSON}
}

// IsValidFormat checks if the given output format is valid.
func IsValidFormat(format string) bool {
	return slices.Contains(ValidFormats(), format)
}

// resultJSON represents the result in JSON format.
type resultJSON struct {
	Source   string               `json:"source"`
	Frames   int                  `json:"frames"`
	Pixels   int                  `json:"pixels"`
	Distinct int                  `json:"distinct"`
	Seed     int64                `json:"seed"`
	Top      []colour.ColourJSON  `json:"top"`
	Clusters []colour.ClusterJSON `json:"clusters"`
}

// FormatResult formats the result according to the specified format.
// top limits how many ranking entries are listed; negative means all.
func FormatResult(result *pipeline.Result, format string, top int, showPreview bool) (string, error) {
	switch format {
	case FormatText:
		return formatText(result, top, showPreview), nil
	case FormatHex:
		return formatHex(result), nil
	case FormatJSON:
		total := result.Ranking.Total()
		out := resultJSON{
			Source:   result.Source,
			Frames:   result.Frames,
			Pixels:   result.Pixels,
			Distinct: len(result.Ranking),
			Seed:     result.Seed,
			Top:      colour.ToColourJSON(result.Ranking.Top(top), total),
			Clusters: colour.ToClusterJSON(result.Clusters, total),
		}
		jsonBytes, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(jsonBytes) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(ValidFormats(), ", "))
	}
}

// formatHex lists the cluster centroids, one hex code per line.
func formatHex(result *pipeline.Result) string {
	var b strings.Builder
	for _, c := range result.Clusters {
		b.WriteString(c.Centroid.Hex())
		b.WriteString("\n")
	}
	return b.String()
}

// formatText renders the ranking and the clusters as tables.
func formatText(result *pipeline.Result, top int, showPreview bool) string {
	total := result.Ranking.Total()
	ranking := result.Ranking.Top(top)

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d colours in %s (%d frames, %d pixels, %d distinct):\n",
		len(ranking), result.Source, result.Frames, result.Pixels, len(result.Ranking))

	headers := []string{"#", "Hex", "RGB", "Count", "Share"}
	ranked := NewTable(headers)
	ranked.SetAlign(0, AlignRight)
	ranked.SetAlign(len(headers)-2, AlignRight)
	ranked.SetAlign(len(headers)-1, AlignRight)
	for i, f := range ranking {
		row := []string{strconv.Itoa(i + 1), hexCell(f.Colour, showPreview), f.Colour.String(),
			strconv.Itoa(f.Count), percent(f.Count, total)}
		ranked.AddRow(row)
	}
	b.WriteString(ranked.Render())

	b.WriteString("\nColour clusters:\n")
	headers = []string{"#", "Centroid", "RGB", "Colours", "Weight"}
	clusters := NewTable(headers)
	clusters.SetAlign(0, AlignRight)
	clusters.SetAlign(len(headers)-2, AlignRight)
	clusters.SetAlign(len(headers)-1, AlignRight)
	for i, c := range result.Clusters {
		row := []string{strconv.Itoa(i + 1), hexCell(c.Centroid, showPreview), c.Centroid.String(),
			strconv.Itoa(len(c.Assignments)), percent(c.Weight(), total)}
		clusters.AddRow(row)
	}
	b.WriteString(clusters.Render())

	return b.String()
}

// hexCell is the hex code, drawn on a swatch of the colour when previewing.
func hexCell(c colour.RGB, showPreview bool) string {
	if !showPreview {
		return c.Hex()
	}
	return swatch(c)
}

// swatch renders the hex code on a block of the colour, in black or white
// text depending on which stays readable.
func swatch(c colour.RGB) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Hex())).
		Foreground(lipgloss.Color(colour.ReadableOn(c).Hex())).
		Padding(0, 1).
		Render(c.Hex())
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return strconv.FormatFloat(100*float64(n)/float64(total), 'f', 1, 64) + "%"
}
