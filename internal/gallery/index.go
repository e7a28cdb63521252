package gallery

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"chartgallery/internal/domain"
)

// Unknown is the grouping key of artifacts whose manifest lacks a value.
const Unknown = "Unknown"

// Index is the display model of a gallery directory: artifacts grouped by
// history years, then by horizon days.
type Index struct {
	Groups  []YearGroup `json:"groups"`
	Orphans int         `json:"orphans"` // manifests with no artifact
}

// YearGroup holds every artifact with the same history length.
type YearGroup struct {
	Years    string         `json:"years"`
	Horizons []HorizonGroup `json:"horizons"`

	value float64
	known bool
}

// HorizonGroup holds every artifact with the same horizon.
type HorizonGroup struct {
	Days    string  `json:"days"`
	Entries []Entry `json:"entries"`

	value int
	known bool
}

// Entry is one artifact card.
type Entry struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Label    string `json:"label"`
	Created  string `json:"created"`
	Symbol   string `json:"symbol,omitempty"`
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	n := 0
	for _, g := range idx.Groups {
		for _, h := range g.Horizons {
			n += len(h.Entries)
		}
	}
	return n
}

// BuildIndex scans dir and returns its index model. It never fails because of
// a single artifact: unreadable or corrupt manifests fall back to Unknown
// grouping. Only an unreadable directory is an error.
func BuildIndex(dir string) (*Index, error) {
	return buildIndex(dir, slog.Default())
}

func buildIndex(dir string, log *slog.Logger) (*Index, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading gallery dir: %w", err)
	}

	artifacts := make(map[string]bool)
	var manifests []string
	b := newBuilder()

	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, ManifestExt) {
			manifests = append(manifests, strings.TrimSuffix(name, ManifestExt))
			continue
		}
		id, ok := IDFromFilename(name)
		if !ok {
			continue
		}
		artifacts[id] = true
		b.add(entryFor(dir, id, name, de, log))
	}

	idx := b.build()
	for _, id := range manifests {
		if !artifacts[id] {
			idx.Orphans++
			log.Debug("ignoring orphaned manifest", "manifest", ManifestFile(id))
		}
	}
	return idx, nil
}

// entryFor reads the manifest for id and fills defaults for anything it
// cannot provide.
func entryFor(dir, id, filename string, de os.DirEntry, log *slog.Logger) grouped {
	created := ""
	if info, err := de.Info(); err == nil {
		created = info.ModTime().Format(CreatedFormat)
	}
	g := grouped{
		entry: Entry{ID: id, Filename: filename, Title: filename, Created: created},
	}

	m, err := readManifest(dir, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrCorruptManifest):
		log.Warn("corrupt manifest, using defaults", "artifact", filename, "err", err)
		m = Manifest{}
	case errors.Is(err, domain.ErrNotFound):
		m = Manifest{}
	default:
		log.Warn("unreadable manifest, using defaults", "artifact", filename, "err", err)
		m = Manifest{}
	}

	if m.Years != nil {
		g.years, g.yearsKnown = *m.Years, true
	}
	if m.Days != nil {
		g.days, g.daysKnown = *m.Days, true
	}
	if m.Title != "" {
		g.entry.Title = m.Title
	}
	if m.Created != "" {
		g.entry.Created = m.Created
	}
	g.entry.Symbol = m.Symbol
	g.entry.Label = m.Symbol
	if g.entry.Label == "" {
		g.entry.Label = g.entry.Title
	}
	return g
}

// ---------------------------------------------------------------------------
// Grouping
// ---------------------------------------------------------------------------

type grouped struct {
	entry      Entry
	years      float64
	yearsKnown bool
	days       int
	daysKnown  bool
}

type builder struct {
	years map[string]*YearGroup
	days  map[string]map[string]*HorizonGroup
}

func newBuilder() *builder {
	return &builder{
		years: make(map[string]*YearGroup),
		days:  make(map[string]map[string]*HorizonGroup),
	}
}

func (b *builder) add(g grouped) {
	yk := Unknown
	if g.yearsKnown {
		yk = FormatYears(g.years)
	}
	yg, ok := b.years[yk]
	if !ok {
		yg = &YearGroup{Years: yk, value: g.years, known: g.yearsKnown}
		b.years[yk] = yg
		b.days[yk] = make(map[string]*HorizonGroup)
	}

	dk := Unknown
	if g.daysKnown {
		dk = fmt.Sprint(g.days)
	}
	hg, ok := b.days[yk][dk]
	if !ok {
		hg = &HorizonGroup{Days: dk, value: g.days, known: g.daysKnown}
		b.days[yk][dk] = hg
	}
	hg.Entries = append(hg.Entries, g.entry)
}

func (b *builder) build() *Index {
	idx := &Index{Groups: []YearGroup{}}
	for yk, yg := range b.years {
		for _, hg := range b.days[yk] {
			sort.Slice(hg.Entries, func(i, j int) bool {
				return hg.Entries[i].Filename < hg.Entries[j].Filename
			})
			yg.Horizons = append(yg.Horizons, *hg)
		}
		sort.Slice(yg.Horizons, func(i, j int) bool {
			x, y := yg.Horizons[i], yg.Horizons[j]
			if x.known != y.known {
				return x.known
			}
			return x.value > y.value
		})
		idx.Groups = append(idx.Groups, *yg)
	}
	sort.Slice(idx.Groups, func(i, j int) bool {
		x, y := idx.Groups[i], idx.Groups[j]
		if x.known != y.known {
			return x.known
		}
		return x.value > y.value
	})
	return idx
}
