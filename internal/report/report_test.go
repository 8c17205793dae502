package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shereeef1/meme-generator/internal/competitor"
	"github.com/shereeef1/meme-generator/internal/research"
	"github.com/shereeef1/meme-generator/internal/source"
	"github.com/shereeef1/meme-generator/internal/trend"
)

func sampleAggregate() research.Aggregate {
	return research.Aggregate{
		Success:   true,
		BrandName: "Acme",
		Category:  "gadgets",
		Country:   "US",
		Sources: []source.Ref{
			{Type: "wikipedia", URL: "https://en.wikipedia.org/wiki/Acme"},
			{Type: "search", URL: "https://www.acme.com/", Query: "Acme official website"},
		},
		Competitors:  []competitor.Candidate{{Name: "Globex", Mentions: 6}},
		Trends:       []trend.Candidate{{Phrase: "sustainable packaging", Score: 9}},
		DocumentPath: "research_docs/acme_20250615_120000_abcd1234.txt",
		Warning:      "some sources were unavailable; results may be incomplete",
		PartialFailures: []research.Failure{
			{Source: "trends", Error: "search unavailable or rate limited"},
		},
		Timestamp: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Summarize(sampleAggregate())); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Brand:     Acme",
		"Category:  gadgets",
		"Status:    completed",
		"Sources:   2",
		"Globex (6 mentions)",
		"sustainable packaging (score 9)",
		"trends: search unavailable or rate limited",
		"Warning:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteText_Failure(t *testing.T) {
	agg := research.Aggregate{
		BrandName: "Acme",
		Error:     "all data sources failed",
		Timestamp: time.Now(),
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, Summarize(agg)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "Status:    failed") {
		t.Errorf("expected failed status:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Error: all data sources failed") {
		t.Errorf("expected error line:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Summarize(sampleAggregate())); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.BrandName != "Acme" || decoded.SourceCount != 2 {
		t.Errorf("unexpected decode %+v", decoded)
	}
}

func TestWriteSourcesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSourcesCSV(&buf, sampleAggregate()); err != nil {
		t.Fatalf("WriteSourcesCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "type" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][3] != "Acme official website" {
		t.Errorf("unexpected row %v", rows[2])
	}
}

func TestWriteCompetitorsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCompetitorsCSV(&buf, sampleAggregate()); err != nil {
		t.Fatalf("WriteCompetitorsCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Globex" || rows[1][2] != "6" {
		t.Errorf("unexpected rows %v", rows)
	}
}
