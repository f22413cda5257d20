package consolidate

import (
	"regexp"
	"strings"
)

// Transcript is a parsed session log, split into its sections.
type Transcript struct {
	ID        string // transcript identifier, normally the file name
	Summary   string
	Exchanges string // raw transcript section
	Actions   string
}

var (
	summaryRe    = regexp.MustCompile(`(?s)SUMMARY\s*-+\s*(.+?)\n\n`)
	transcriptRe = regexp.MustCompile(`(?s)RAW TRANSCRIPT\s*-+\s*(.+?)(?:\n\nACTIONS|\n\n=+)`)
	actionsRe    = regexp.MustCompile(`(?s)ACTIONS TAKEN\s*-+\s*(.+?)(?:\n\n=+)`)
)

// maxExchangeChars caps the transcript body fed to extraction so prompts
// stay bounded.
const maxExchangeChars = 2000

// ParseTranscript splits a session log into sections. Returns false when
// no recognizable section is present.
func ParseTranscript(id, content string) (Transcript, bool) {
	t := Transcript{ID: id}

	if m := summaryRe.FindStringSubmatch(content); m != nil {
		t.Summary = strings.TrimSpace(m[1])
	}
	if m := transcriptRe.FindStringSubmatch(content); m != nil {
		t.Exchanges = strings.TrimSpace(m[1])
		if len(t.Exchanges) > maxExchangeChars {
			t.Exchanges = t.Exchanges[:maxExchangeChars] + "..."
		}
	}
	if m := actionsRe.FindStringSubmatch(content); m != nil {
		t.Actions = strings.TrimSpace(m[1])
	}

	return t, t.Summary != "" || t.Exchanges != "" || t.Actions != ""
}

// ExtractionInput renders the transcript for the extraction capability.
func (t Transcript) ExtractionInput() string {
	var parts []string
	if t.Summary != "" {
		parts = append(parts, "Session Summary:\n"+t.Summary)
	}
	if t.Exchanges != "" {
		parts = append(parts, "Transcript:\n"+t.Exchanges)
	}
	if t.Actions != "" {
		parts = append(parts, "Actions:\n"+t.Actions)
	}
	return strings.Join(parts, "\n\n")
}
