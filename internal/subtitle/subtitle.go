// Package subtitle renders transcripts as SRT and WebVTT documents.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/prasasta/revoice/domain/entities"
)

// FormatSRT renders a timestamp as HH:MM:SS,mmm.
func FormatSRT(seconds float64) string {
	return formatTimestamp(seconds, ",")
}

// FormatVTT renders a timestamp as HH:MM:SS.mmm.
func FormatVTT(seconds float64) string {
	return formatTimestamp(seconds, ".")
}

// formatTimestamp truncates (not rounds) each component, matching the
// timestamps third-party players expect.
func formatTimestamp(seconds float64, sep string) string {
	h := int(seconds / 3600)
	m := int(seconds/60) % 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}

// RenderSRT produces a SubRip document: numbered cues with comma-separated
// millisecond timestamps.
func RenderSRT(t *entities.Transcript) string {
	var b strings.Builder
	for i, seg := range t.Segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatSRT(seg.Start), FormatSRT(seg.End))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// RenderVTT produces a WebVTT document with dot-separated millisecond
// timestamps.
func RenderVTT(t *entities.Transcript) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range t.Segments {
		fmt.Fprintf(&b, "%s --> %s\n", FormatVTT(seg.Start), FormatVTT(seg.End))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
