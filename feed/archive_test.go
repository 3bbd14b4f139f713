package feed

import (
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/okawa-catalog/feed/feedtest"
)

func TestExtractEntry(t *testing.T) {
	data, err := feedtest.Zip(map[string][]byte{
		"leeme.txt":          []byte("hola"),
		"okawa-completa.xls": []byte("sheet-bytes"),
	})
	if err != nil {
		t.Fatalf("build zip: %v", err)
	}

	got, err := ExtractEntry(data, "okawa-completa.xls")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(got) != "sheet-bytes" {
		t.Fatalf("content = %q", got)
	}
}

func TestExtractEntryNestedCaseInsensitive(t *testing.T) {
	data, err := feedtest.Zip(map[string][]byte{
		"datos/OKAWA-COMPLETA.XLS": []byte("nested"),
	})
	if err != nil {
		t.Fatalf("build zip: %v", err)
	}

	got, err := ExtractEntry(data, "okawa-completa.xls")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(got) != "nested" {
		t.Fatalf("content = %q", got)
	}
}

func TestExtractEntryMissing(t *testing.T) {
	data, err := feedtest.Zip(map[string][]byte{"otro.xls": []byte("x")})
	if err != nil {
		t.Fatalf("build zip: %v", err)
	}

	_, err = ExtractEntry(data, "okawa-completa.xls")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "okawa-completa.xls") {
		t.Fatalf("error should name the entry: %v", err)
	}
}

func TestExtractEntryNotAZip(t *testing.T) {
	if _, err := ExtractEntry([]byte("<html>mantenimiento</html>"), "okawa-completa.xls"); err == nil {
		t.Fatalf("expected error for non-zip payload")
	}
}
