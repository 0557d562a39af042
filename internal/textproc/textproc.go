// Package textproc cleans raw engine output before it is surfaced to
// callers: timestamp markers are stripped and the short filler phrases the
// model hallucinates on silence are dropped.
package textproc

import (
	"regexp"
	"strings"
)

// timestampPattern matches the inline "[hh:mm:ss.mmm --> hh:mm:ss.mmm]"
// markers the engine can emit when timestamps leak into segment text.
var timestampPattern = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}\.\d{3}\]\s*`)

var spacePattern = regexp.MustCompile(`\s+`)

// defaultHallucinations are phrases the model commonly produces for silent or
// noisy audio. Matching is case-insensitive against the whole utterance.
var defaultHallucinations = []string{
	"thanks for watching",
	"thank you for watching",
	"thanks for listening",
	"don't forget to subscribe",
	"like and subscribe",
	"see you in the next video",
	"thank you",
	"thanks",
	"[blank_audio]",
	"[silence]",
	"(silence)",
}

// Filter removes artefacts from finished transcripts.
type Filter struct {
	phrases []string
}

// NewFilter returns a Filter with the default hallucination list.
func NewFilter() *Filter {
	return &Filter{phrases: defaultHallucinations}
}

// RemoveTimestamps strips timestamp markers and collapses the whitespace the
// removal leaves behind.
func RemoveTimestamps(text string) string {
	if text == "" {
		return ""
	}
	clean := timestampPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(clean, " "))
}

// Clean normalises a finished transcript. Utterances consisting solely of a
// known hallucinated phrase become empty.
func (f *Filter) Clean(text string) string {
	clean := RemoveTimestamps(text)
	if clean == "" {
		return ""
	}
	lower := strings.ToLower(clean)
	lower = strings.TrimRight(lower, ".!?")
	for _, phrase := range f.phrases {
		if lower == phrase {
			return ""
		}
	}
	return clean
}
