package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	svc := NewFileExtractService()

	tests := []struct {
		name     string
		filename string
		size     int64
		head     []byte
		wantErr  bool
	}{
		{"valid pdf", "edital.pdf", 1024, []byte("%PDF-1.7"), false},
		{"valid docx", "apostila.docx", 1024, []byte("PK\x03\x04rest"), false},
		{"valid txt", "notas.txt", 1024, []byte("texto simples"), false},
		{"uppercase extension", "EDITAL.PDF", 1024, []byte("%PDF-1.4"), false},
		{"too large", "edital.pdf", MaxUploadBytes + 1, []byte("%PDF"), true},
		{"pdf with wrong magic", "fake.pdf", 1024, []byte("MZ\x90\x00"), true},
		{"docx with wrong magic", "fake.docx", 1024, []byte("%PDF"), true},
		{"binary posing as txt", "fake.txt", 1024, []byte("ab\x00cd"), true},
		{"unsupported extension", "planilha.xlsx", 1024, []byte("PK\x03\x04"), true},
		{"no extension", "arquivo", 1024, []byte("data"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ValidateUpload(tc.filename, tc.size, tc.head)
			if tc.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("Expected ValidationError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestExtractTXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notas.txt")

	content := "Princípio da legalidade:\r\n\r\n\r\nO administrador só pode agir conforme a lei.\r\nSem autorização legal, nada feito.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewFileExtractService()
	text, err := svc.ExtractTextFromPath(path)
	if err != nil {
		t.Fatalf("ExtractTextFromPath failed: %v", err)
	}

	if strings.Contains(text, "\r") {
		t.Error("Carriage returns were not normalized")
	}
	if strings.Contains(text, "\n\n\n") {
		t.Error("Repeated blank lines were not collapsed")
	}
	if !strings.Contains(text, "Princípio da legalidade") {
		t.Error("Extracted text is missing content")
	}
}

func TestExtractTXTRejectsTinyFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "curto.txt")
	if err := os.WriteFile(path, []byte("oi"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewFileExtractService()
	if _, err := svc.ExtractTextFromPath(path); err == nil {
		t.Error("Expected an error for a file with almost no text")
	}
}

func TestExtractRejectsUnknownExtension(t *testing.T) {
	svc := NewFileExtractService()
	if _, err := svc.ExtractTextFromPath("/tmp/whatever.exe"); err == nil {
		t.Error("Expected an error for an unsupported extension")
	}
}

func TestStripDOCXML(t *testing.T) {
	xml := `<w:document><w:body><w:p><w:r><w:t>Primeira linha &amp; teste</w:t></w:r></w:p><w:p><w:r><w:t>Segunda linha</w:t></w:r></w:p></w:body></w:document>`

	text := stripDOCXML([]byte(xml))

	if !strings.Contains(text, "Primeira linha & teste") {
		t.Errorf("Entities or text mangled: %q", text)
	}
	if !strings.Contains(text, "\n") {
		t.Error("Paragraph boundaries were not converted to newlines")
	}
	if strings.Contains(text, "<w:") {
		t.Error("XML tags leaked into the text")
	}
}

func TestNormalizeExtractedText(t *testing.T) {
	input := "  linha um  \n\n\n\n  linha dois\t \nlinha três"
	got := normalizeExtractedText(input)

	if strings.Contains(got, "\n\n\n") {
		t.Errorf("Blank lines not collapsed: %q", got)
	}
	if !strings.HasPrefix(got, "linha um") {
		t.Errorf("Leading whitespace not trimmed: %q", got)
	}
}
