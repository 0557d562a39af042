package engine

import (
	"strings"

	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

// diffTranscript returns the part of current that extends previous, or the
// whole of current when it is not a plain extension.
func diffTranscript(previous, current string) string {
	prevTrimmed := strings.TrimSpace(previous)
	currTrimmed := strings.TrimSpace(current)

	if prevTrimmed == "" {
		return currTrimmed
	}
	if prevTrimmed == currTrimmed {
		return ""
	}

	prevRunes := []rune(prevTrimmed)
	currRunes := []rune(currTrimmed)

	if len(prevRunes) > len(currRunes) {
		return currTrimmed
	}
	for i := range prevRunes {
		if currRunes[i] != prevRunes[i] {
			return currTrimmed
		}
	}

	delta := string(currRunes[len(prevRunes):])
	return strings.TrimLeft(delta, " \t\r\n")
}

func normaliseLanguage(candidate, fallback string) string {
	if trimmed := strings.TrimSpace(candidate); trimmed != "" {
		return trimmed
	}
	if trimmed := strings.TrimSpace(fallback); trimmed != "" {
		return trimmed
	}
	return whisper.DefaultLanguage
}
