// Package consolidate reads session transcripts, runs an extraction
// capability over them, and persists the extracted insights as memories
// linked back to their source transcript.
package consolidate

import (
	"context"
	"strings"
)

// Item is one structured insight returned by the extraction capability.
type Item struct {
	Kind  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"content"`
}

// Extractor is the injected extraction capability. Implementations may be
// slow and may fail; the consolidator treats output as untrusted and
// validates every item.
type Extractor interface {
	Extract(ctx context.Context, transcript string) ([]Item, error)
}

// kindToType maps extracted kinds onto memory types. Unrecognized kinds
// downgrade to insight rather than being rejected.
var kindToType = map[string]string{
	"fact":       "fact",
	"preference": "preference",
	"topic":      "insight",
	"entity":     "insight",
}

// validate filters extractor output: items need non-empty text, and
// unknown kinds are downgraded.
func validate(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			continue
		}
		if _, ok := kindToType[it.Kind]; !ok {
			it.Kind = "topic"
		}
		out = append(out, it)
	}
	return out
}
