package domain

import (
	"fmt"
	"strings"
)

type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatMarkdown OutputFormat = "markdown"
	FormatSRT      OutputFormat = "srt"
)

// srtCueSeconds is the fixed window assigned to each subtitle cue. No
// sub-second timing is derived from the content.
const srtCueSeconds = 10

// ConvertFormat renders a transcript in the requested output format.
// Unknown formats fall back to plain text.
func ConvertFormat(text string, format OutputFormat) string {
	switch format {
	case FormatMarkdown:
		return toMarkdown(text)
	case FormatSRT:
		return toSRT(text)
	default:
		return text
	}
}

// toMarkdown keeps paragraph structure: each non-empty paragraph is trimmed
// and terminated by a newline, paragraphs separated by a blank line.
func toMarkdown(text string) string {
	paragraphs := make([]string, 0)
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, p+"\n")
	}
	return strings.Join(paragraphs, "\n")
}

// toSRT emits one cue per non-empty line, each spanning a fixed ten-second
// window starting at zero.
func toSRT(text string) string {
	var b strings.Builder
	index := 1
	start := 0

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		end := start + srtCueSeconds
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, formatSRTTime(start), formatSRTTime(end), line)
		index++
		start = end
	}

	return b.String()
}

// formatSRTTime renders whole seconds as HH:MM:SS,mmm with zero milliseconds.
func formatSRTTime(seconds int) string {
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, 0)
}
