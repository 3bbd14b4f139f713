package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/okawa-catalog/models"
)

func sampleArticle() models.Article {
	return models.Article{
		Code:           "F-100",
		Description:    "Filtro de aceite, \"largo\"",
		Price:          1234.5,
		Availability:   models.AvailabilityInquire,
		Category:       "FILTROS",
		Brand:          "FRAM",
		PriceList:      "L1",
		EquivalentCode: "PH-5",
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "articulos.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]models.Article{sampleArticle()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "codigo" || records[0][7] != "equivalente" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "F-100" || row[1] != "Filtro de aceite, \"largo\"" || row[2] != "1234.50" || row[3] != "C" {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articulos.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	second := sampleArticle()
	second.Code = "F-200"
	if err := writer.Write([]models.Article{sampleArticle(), second}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []models.Article
	for scanner.Scan() {
		var a models.Article
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		decoded = append(decoded, a)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("json lines=%d, want 2", len(decoded))
	}
	if decoded[0] != sampleArticle() {
		t.Fatalf("decoded = %+v, want %+v", decoded[0], sampleArticle())
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "articulos.csv")
	jsonPath := filepath.Join(dir, "articulos.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]models.Article{sampleArticle()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

type recordingWriter struct {
	batches []int
	closed  bool
	invalid error
}

func (w *recordingWriter) Write(articles []models.Article) error {
	w.batches = append(w.batches, len(articles))
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func (w *recordingWriter) Validate() error {
	return w.invalid
}

func TestExportBatches(t *testing.T) {
	articles := make([]models.Article, 7)
	w := &recordingWriter{}
	if err := Export(context.Background(), w, articles, 3); err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(w.batches) != 3 || w.batches[0] != 3 || w.batches[2] != 1 {
		t.Fatalf("batches = %v, want [3 3 1]", w.batches)
	}
	if !w.closed {
		t.Fatalf("writer should be closed")
	}
}

func TestExportValidationFailure(t *testing.T) {
	w := &recordingWriter{invalid: errors.New("empty output")}
	err := Export(context.Background(), w, []models.Article{sampleArticle()}, 10)
	if err == nil || !w.closed {
		t.Fatalf("expected validation error and closed writer, got err=%v closed=%v", err, w.closed)
	}
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &recordingWriter{}
	if err := Export(ctx, w, make([]models.Article, 5), 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(w.batches) != 0 {
		t.Fatalf("no batch should be written after cancellation")
	}
}
