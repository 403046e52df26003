package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-products/models"
)

func sampleRecord() *models.ProductRecord {
	rating := 4.5
	reviews := 128
	return &models.ProductRecord{
		URL:             "https://www.shoplandia.com/pr/cobalt-mug/8841",
		ExternalID:      "8841",
		Title:           "Cobalt Mug",
		Brand:           "Shoplandia Home",
		Price:           "12.90",
		Currency:        "EUR",
		Rating:          &rating,
		ReviewCount:     &reviews,
		Availability:    "InStock",
		DescriptionText: "A mug, but cobalt.",
		Images:          []string{"https://www.shoplandia.com/img/8841-a.jpg", "https://www.shoplandia.com/img/8841-b.jpg"},
		Categories:      []string{"Home", "Kitchen"},
		Source:          "embedded",
		ScrapedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Write([]*models.ProductRecord{sampleRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 record", len(rows))
	}
	if rows[0][0] != "url" || rows[0][len(rows[0])-1] != "scraped_at" {
		t.Fatalf("unexpected header: %v", rows[0])
	}

	row := rows[1]
	if row[0] != "https://www.shoplandia.com/pr/cobalt-mug/8841" {
		t.Errorf("url column = %q", row[0])
	}
	if row[2] != "Cobalt Mug" {
		t.Errorf("title column = %q", row[2])
	}
	if row[6] != "4.5" {
		t.Errorf("rating column = %q", row[6])
	}
	if row[10] != "https://www.shoplandia.com/img/8841-a.jpg|https://www.shoplandia.com/img/8841-b.jpg" {
		t.Errorf("images column = %q", row[10])
	}
	if row[11] != "Home|Kitchen" {
		t.Errorf("categories column = %q", row[11])
	}
}

func TestJSONWriterEmitsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	records := []*models.ProductRecord{sampleRecord(), sampleRecord()}
	if err := writer.Write(records); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var decoded models.ProductRecord
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if decoded.Title != "Cobalt Mug" || decoded.ExternalID != "8841" {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Rating == nil || *decoded.Rating != 4.5 {
		t.Fatalf("rating = %v", decoded.Rating)
	}
}

func TestJSONWriterOmitsEmptyOptionalFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	sparse := &models.ProductRecord{
		URL:       "https://www.shoplandia.com/pr/plain/1",
		Title:     "Plain",
		ScrapedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := writer.Write([]*models.ProductRecord{sparse}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	for _, field := range []string{"rating", "review_count", "brand", "images"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("sparse record should omit %q: %s", field, line)
		}
	}
}

func TestWritersCreateMissingDirectories(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "out", "nested", "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat nested output: %v", err)
	}
}

func TestDualWriterFansOut(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	jsonPath := filepath.Join(dir, "products.jsonl")

	dual, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := dual.Write([]*models.ProductRecord{sampleRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := dual.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := dual.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	csvData, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if !strings.Contains(string(csvData), "Cobalt Mug") {
		t.Errorf("csv output missing record")
	}
	if !strings.Contains(string(jsonData), "Cobalt Mug") {
		t.Errorf("json output missing record")
	}
}
