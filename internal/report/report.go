// Package report renders a research aggregate into shareable formats:
// plain text for reading, JSON for tooling, CSV for spreadsheets.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/template"
	"time"

	"github.com/shereeef1/meme-generator/internal/research"
)

// Summary is the report view of a research run.
type Summary struct {
	BrandName       string             `json:"brand_name"`
	Category        string             `json:"category,omitempty"`
	Country         string             `json:"country,omitempty"`
	Success         bool               `json:"success"`
	SourceCount     int                `json:"source_count"`
	Competitors     []string           `json:"competitors,omitempty"`
	Trends          []string           `json:"trends,omitempty"`
	PartialFailures []research.Failure `json:"partial_failures,omitempty"`
	DocumentPath    string             `json:"document_path,omitempty"`
	Warning         string             `json:"warning,omitempty"`
	Error           string             `json:"error,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Summarize condenses an aggregate for reporting.
func Summarize(agg research.Aggregate) Summary {
	s := Summary{
		BrandName:       agg.BrandName,
		Category:        agg.Category,
		Country:         agg.Country,
		Success:         agg.Success,
		SourceCount:     len(agg.Sources),
		PartialFailures: agg.PartialFailures,
		DocumentPath:    agg.DocumentPath,
		Warning:         agg.Warning,
		Error:           agg.Error,
		Timestamp:       agg.Timestamp,
	}
	for _, c := range agg.Competitors {
		s.Competitors = append(s.Competitors, fmt.Sprintf("%s (%d mentions)", c.Name, c.Mentions))
	}
	for _, t := range agg.Trends {
		s.Trends = append(s.Trends, fmt.Sprintf("%s (score %d)", t.Phrase, t.Score))
	}
	return s
}

var textTemplate = template.Must(template.New("report").Parse(`Brand Research Report
=====================
Brand:     {{.BrandName}}
{{- if .Category}}
Category:  {{.Category}}
{{- end}}
{{- if .Country}}
Country:   {{.Country}}
{{- end}}
Run at:    {{.Timestamp.Format "2006-01-02 15:04:05 MST"}}
Status:    {{if .Success}}completed{{else}}failed{{end}}
Sources:   {{.SourceCount}}
{{- if .DocumentPath}}
Document:  {{.DocumentPath}}
{{- end}}
{{- if .Competitors}}

Competitors:
{{- range .Competitors}}
  - {{.}}
{{- end}}
{{- end}}
{{- if .Trends}}

Trends:
{{- range .Trends}}
  - {{.}}
{{- end}}
{{- end}}
{{- if .PartialFailures}}

Unavailable sources:
{{- range .PartialFailures}}
  - {{.Source}}: {{.Error}}
{{- end}}
{{- end}}
{{- if .Warning}}

Warning: {{.Warning}}
{{- end}}
{{- if .Error}}

Error: {{.Error}}
{{- end}}
`))

// WriteText renders the summary as a human-readable report.
func WriteText(w io.Writer, s Summary) error {
	return textTemplate.Execute(w, s)
}

// WriteJSON renders the summary as indented JSON.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSourcesCSV writes the aggregate's consulted sources as CSV, one row
// per source.
func WriteSourcesCSV(w io.Writer, agg research.Aggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"brand", "type", "url", "query"}); err != nil {
		return err
	}
	for _, src := range agg.Sources {
		if err := cw.Write([]string{agg.BrandName, src.Type, src.URL, src.Query}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCompetitorsCSV writes mined competitors as CSV.
func WriteCompetitorsCSV(w io.Writer, agg research.Aggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"brand", "competitor", "mentions"}); err != nil {
		return err
	}
	for _, c := range agg.Competitors {
		if err := cw.Write([]string{agg.BrandName, c.Name, strconv.Itoa(c.Mentions)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
