package gallery

import (
	"time"
)

// CreatedFormat is the human-readable layout of Manifest.Created.
const CreatedFormat = "January 02, 2006"

// Manifest is the JSON sidecar stored next to each artifact. Years and Days
// are pointers so a manifest that omits them decodes as unknown rather than
// zero.
type Manifest struct {
	Years       *float64 `json:"years,omitempty"`
	Days        *int     `json:"days,omitempty"`
	Title       string   `json:"title,omitempty"`
	Created     string   `json:"created,omitempty"`
	Symbol      string   `json:"symbol,omitempty"`
	Until       string   `json:"until,omitempty"`        // YYYY-MM-DD
	GeneratedAt string   `json:"generated_at,omitempty"` // RFC3339
}

// NewManifest fills every field for a freshly generated artifact.
func NewManifest(symbol string, years float64, days int, title string, until, generated time.Time) Manifest {
	return Manifest{
		Years:       &years,
		Days:        &days,
		Title:       title,
		Created:     generated.Format(CreatedFormat),
		Symbol:      symbol,
		Until:       until.Format("2006-01-02"),
		GeneratedAt: generated.UTC().Format(time.RFC3339),
	}
}
