// Package notes parses the legacy flat note file format.
//
// Records are delimited by "---" header lines:
//
//	--- Shopping ---
//	Date: 2024-03-01 14:30
//	Tags: errands, food
//	Buy rice noodles and tamarind paste.
//
// Unknown or missing fields default to empty rather than failing the file.
package notes

import (
	"strings"
	"time"
)

// Record is one parsed flat note.
type Record struct {
	Title   string
	Date    time.Time
	Tags    []string
	Content string
}

var dateFormats = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// Parse splits a flat note file into records. Empty records are dropped.
func Parse(text string) []Record {
	var records []Record

	for _, raw := range strings.Split(text, "\n---") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		var rec Record
		var content []string

		lines := strings.Split(raw, "\n")
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)

			// First line carries the title, possibly with "---" remnants.
			if i == 0 {
				rec.Title = strings.TrimSpace(strings.ReplaceAll(trimmed, "---", ""))
				continue
			}
			if v, ok := strings.CutPrefix(trimmed, "Date:"); ok {
				rec.Date = parseDate(strings.TrimSpace(v))
				continue
			}
			if v, ok := strings.CutPrefix(trimmed, "Tags:"); ok {
				for _, t := range strings.Split(v, ",") {
					if t = strings.TrimSpace(t); t != "" {
						rec.Tags = append(rec.Tags, t)
					}
				}
				continue
			}
			content = append(content, line)
		}

		rec.Content = strings.TrimSpace(strings.Join(content, "\n"))
		if rec.Content == "" && rec.Title == "" {
			continue
		}
		records = append(records, rec)
	}

	return records
}

func parseDate(s string) time.Time {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
