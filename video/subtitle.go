package video

import (
	"fmt"
	"os"
	"strings"
)

// formatLayout bundles every per-format rendering constant.
type formatLayout struct {
	Width        int
	Height       int
	BaseY        int     // distance of the lowest text line from the bottom
	LineSpacing  int     // vertical distance between stacked lines
	MaxChars     int     // maximum characters per rendered text line
	FadeDuration float64 // seconds for alpha fade in/out
}

var (
	shortLayout = formatLayout{Width: 1080, Height: 1920, BaseY: 250, LineSpacing: 85, MaxChars: 28, FadeDuration: 0.5}
	longLayout  = formatLayout{Width: 1920, Height: 1080, BaseY: 120, LineSpacing: 75, MaxChars: 42, FadeDuration: 0.4}
)

// layoutFor selects the rendering constants for a format.
func layoutFor(isShort bool) formatLayout {
	if isShort {
		return shortLayout
	}
	return longLayout
}

// fontCandidates is probed in order; first hit wins.
var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
	"/System/Library/Fonts/Supplemental/HelveticaNeue.ttc",
	"/System/Library/Fonts/Helvetica.ttc",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// findFont returns the first available subtitle font, falling back to the
// last candidate when nothing is found.
func findFont() string {
	for _, f := range fontCandidates {
		if _, err := os.Stat(f); err == nil {
			return f
		}
	}
	return fontCandidates[len(fontCandidates)-1]
}

// smartQuotes maps typographic quote variants to plain ASCII quotes before
// ffmpeg escaping.
var smartQuotes = map[string]string{
	"‘": "'", "’": "'", "“": `"`, "”": `"`,
	"′": "'", "″": `"`, "„": `"`, "‟": `"`,
	"‛": "'", "❛": "'", "❜": "'", "❝": `"`,
	"❞": `"`, "〝": `"`, "〞": `"`, "＂": `"`,
}

// diacritics transliterates Romanian letters the rendering font cannot show
// to their closest ASCII equivalent. Deliberately lossy.
var diacritics = map[string]string{
	"ă": "a", "â": "a", "î": "i", "ș": "s", "ț": "t",
	"Ă": "A", "Â": "A", "Î": "I", "Ș": "S", "Ț": "T",
}

// EscapeText normalizes quotes and diacritics, then escapes the text for an
// ffmpeg drawtext filter.
func EscapeText(text string) string {
	for old, new := range smartQuotes {
		text = strings.ReplaceAll(text, old, new)
	}
	for old, new := range diacritics {
		text = strings.ReplaceAll(text, old, new)
	}

	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, ":", `\:`)
	text = strings.ReplaceAll(text, "'", "''")
	text = strings.ReplaceAll(text, `"`, `\"`)
	return text
}

// SplitTextIntoLines word-wraps text to at most maxChars per line and at
// most 2 lines. Overflowing text is rebalanced into two halves by word
// count.
func SplitTextIntoLines(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var current []string
	length := 0
	for _, word := range words {
		if len(current) > 0 && length+1+len(word) > maxChars {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
			length = len(word)
		} else {
			if len(current) > 0 {
				length++
			}
			current = append(current, word)
			length += len(word)
		}
	}
	lines = append(lines, strings.Join(current, " "))

	if len(lines) > 2 {
		mid := len(words) / 2
		lines = []string{
			strings.Join(words[:mid], " "),
			strings.Join(words[mid:], " "),
		}
	}
	return lines
}

// SplitSubtitleHalves splits a subtitle into the two time-phased halves of a
// scene by word count.
func SplitSubtitleHalves(subtitle string) (string, string) {
	words := strings.Fields(subtitle)
	mid := len(words) / 2
	return strings.Join(words[:mid], " "), strings.Join(words[mid:], " ")
}

// buildSubtitleFilters returns the drawtext filter chain for one scene's
// subtitle. The first half fades in at t=0 and out at mid-scene; the second
// half fades in at mid-scene and out at scene end. Each half wraps to at
// most two bottom-anchored lines.
func buildSubtitleFilters(subtitle string, duration float64, fontFile string, fontSize int, layout formatLayout) []string {
	first, second := SplitSubtitleHalves(subtitle)
	half := duration / 2
	fade := layout.FadeDuration

	firstAlpha := fmt.Sprintf(
		"if(lt(t,%[1]g),t/%[1]g,if(lt(t,%[2]g),1,if(lt(t,%[2]g+%[1]g),(%[2]g+%[1]g-t)/%[1]g,0)))",
		fade, half,
	)
	secondAlpha := fmt.Sprintf(
		"if(lt(t,%[2]g),0,if(lt(t,%[2]g+%[1]g),((t-%[2]g)/%[1]g),if(lt(t,%[3]g),1,if(lt(t,%[3]g+%[1]g),((%[3]g+%[1]g-t)/%[1]g),0))))",
		fade, half, duration,
	)

	var filters []string
	filters = append(filters, drawtextLines(first, firstAlpha, fontFile, fontSize, layout)...)
	filters = append(filters, drawtextLines(second, secondAlpha, fontFile, fontSize, layout)...)
	return filters
}

// drawtextLines renders one text half as stacked lines growing upwards from
// the layout's base position.
func drawtextLines(text, alpha, fontFile string, fontSize int, layout formatLayout) []string {
	lines := SplitTextIntoLines(text, layout.MaxChars)

	var filters []string
	for i := len(lines) - 1; i >= 0; i-- {
		// Bottom line first: the last wrapped line sits at BaseY, lines
		// above it are spaced upwards.
		offset := layout.BaseY + (len(lines)-1-i)*layout.LineSpacing
		filters = append(filters, fmt.Sprintf(
			"drawtext=fontfile=%s"+
				":text='%s'"+
				":fontsize=%d"+
				":fontcolor=white"+
				":bordercolor=black@0.9"+
				":borderw=5"+
				":shadowcolor=black@0.8"+
				":shadowx=3:shadowy=3"+
				":box=1:boxcolor=black@0.4:boxborderw=8"+
				":x=(w-text_w)/2"+
				":y=h-%d"+
				":alpha='%s'",
			fontFile, EscapeText(lines[i]), fontSize, offset, alpha,
		))
	}
	return filters
}
