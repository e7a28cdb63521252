package gallery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chartgallery/internal/util"
)

// File naming inside the gallery directory.
const (
	ArtifactExt = ".html"
	ManifestExt = ".json"
	IndexFile   = "index.html"
)

// Name returns the artifact id for one forecast run:
//
//	<SYMBOL>_<years>y_<days>d_until_<YYYYMMDD>_<YYYYMMDDHHMMSS>
//
// until is the final forecast date and generated the generation time; the
// latter keeps runs for the same symbol, window and horizon on one day apart.
func Name(symbol string, years float64, days int, until, generated time.Time) string {
	sym := util.SafeName(strings.ToUpper(strings.TrimSpace(symbol)))
	if strings.HasPrefix(sym, ".") {
		sym = "-" + sym // hidden names are skipped by the index scan
	}
	return fmt.Sprintf("%s_%sy_%dd_until_%s_%s",
		sym,
		FormatYears(years),
		days,
		until.Format("20060102"),
		generated.Format("20060102150405"),
	)
}

// FormatYears renders a history length the shortest way: 5, 0.5, 2.25.
func FormatYears(years float64) string {
	return strconv.FormatFloat(years, 'g', -1, 64)
}

// ArtifactFile returns the artifact filename for id.
func ArtifactFile(id string) string { return id + ArtifactExt }

// ManifestFile returns the manifest filename for id.
func ManifestFile(id string) string { return id + ManifestExt }

// IDFromFilename strips the artifact extension from a bare filename. It
// reports false for names with path separators, hidden or temporary names,
// names without the artifact extension and the index document.
func IDFromFilename(filename string) (string, bool) {
	if strings.EqualFold(filename, IndexFile) {
		return "", false
	}
	if !strings.HasSuffix(strings.ToLower(filename), ArtifactExt) {
		return "", false
	}
	id := filename[:len(filename)-len(ArtifactExt)]
	if !validID(id) {
		return "", false
	}
	return id, true
}

// validID reports whether id can be joined onto the gallery directory
// without escaping it.
func validID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}
