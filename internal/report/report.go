// Package report renders the outcome of a defrag run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"

	"github.com/runnerr0/browser-defrag/internal/browser"
)

// NotAvailable is shown for a size that was never recorded.
const NotAvailable = "N/A"

var headers = []string{"Database", "Defrag", "Before", "After", "Changed", "Changed %"}

// Render writes a markdown table per profile of b.
func Render(w io.Writer, b *browser.Browser) error {
	if len(b.Profiles) == 0 {
		_, err := fmt.Fprintf(w, "%s: NO PROFILE FOUND\n", b.Name)
		return err
	}

	var out strings.Builder
	for _, p := range b.Profiles {
		fmt.Fprintf(&out, "\n%s: %s/\n", b.Name, p.Path)
		if len(p.Databases) == 0 {
			out.WriteString("NO DATABASE FOUND\n")
			continue
		}
		out.WriteString(profileTable(p).String())
		out.WriteString("\n")
	}

	_, err := io.WriteString(w, out.String())
	return err
}

func profileTable(p *browser.Profile) *table.Table {
	rows := make([][]string, 0, len(p.Databases)+1)
	for _, db := range p.Databases {
		rows = append(rows, databaseRow(db, p.Path))
	}

	totals := p.Totals()
	percent := NotAvailable
	if totals.Before > 0 {
		percent = formatPercent(totals.Changed, totals.Before)
	}
	rows = append(rows, []string{
		"",
		"",
		formatSize(totals.Before),
		formatSize(totals.After),
		formatSize(totals.Changed),
		percent,
	})

	base := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return base
			case col == 0:
				return base.Align(lipgloss.Left)
			case col == 1:
				return base.Align(lipgloss.Center)
			default:
				return base.Align(lipgloss.Right)
			}
		})
}

func databaseRow(db *browser.Database, profileDir string) []string {
	defrag := "No"
	if db.Defragmented() {
		defrag = "Yes"
	}

	row := []string{db.RelativePath(profileDir), defrag, NotAvailable, NotAvailable, NotAvailable, NotAvailable}
	before, hasBefore := db.SizeBefore()
	after, hasAfter := db.SizeAfter()
	if hasBefore {
		row[2] = formatSize(before)
	}
	if hasAfter {
		row[3] = formatSize(after)
	}
	if hasBefore && hasAfter {
		row[4] = formatSize(after - before)
		if before > 0 {
			row[5] = formatPercent(after-before, before)
		}
	}
	return row
}

// formatSize renders n in IEC units; negative sizes keep their sign.
func formatSize(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func formatPercent(changed, before int64) string {
	return fmt.Sprintf("%.2f %%", float64(changed)*100/float64(before))
}

// JSONReport is the machine-readable form of a run.
type JSONReport struct {
	Browser  string        `json:"browser"`
	DryRun   bool          `json:"dry_run"`
	Profiles []JSONProfile `json:"profiles"`
}

// JSONProfile is one profile with its databases and totals.
type JSONProfile struct {
	Name      string         `json:"name,omitempty"`
	Path      string         `json:"path"`
	Databases []JSONDatabase `json:"databases"`
	Before    int64          `json:"total_before"`
	After     int64          `json:"total_after"`
	Changed   int64          `json:"total_changed"`
}

// JSONDatabase carries sizes as pointers so unmeasured values encode as null.
type JSONDatabase struct {
	Path         string `json:"path"`
	State        string `json:"state"`
	Defragmented bool   `json:"defragmented"`
	SizeBefore   *int64 `json:"size_before"`
	SizeAfter    *int64 `json:"size_after"`
}

// Build converts the registry of b into its JSON form.
func Build(b *browser.Browser, dryRun bool) JSONReport {
	r := JSONReport{Browser: b.Name, DryRun: dryRun, Profiles: []JSONProfile{}}
	for _, p := range b.Profiles {
		totals := p.Totals()
		jp := JSONProfile{
			Name:      p.Name,
			Path:      p.Path,
			Databases: make([]JSONDatabase, 0, len(p.Databases)),
			Before:    totals.Before,
			After:     totals.After,
			Changed:   totals.Changed,
		}
		for _, db := range p.Databases {
			jd := JSONDatabase{
				Path:         db.Path,
				State:        db.State().String(),
				Defragmented: db.Defragmented(),
			}
			if v, ok := db.SizeBefore(); ok {
				jd.SizeBefore = &v
			}
			if v, ok := db.SizeAfter(); ok {
				jd.SizeAfter = &v
			}
			jp.Databases = append(jp.Databases, jd)
		}
		r.Profiles = append(r.Profiles, jp)
	}
	return r
}

// WriteJSON writes the JSON form of b, indented.
func WriteJSON(w io.Writer, b *browser.Browser, dryRun bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(b, dryRun))
}
