package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes caps uploaded documents at 10MB.
const MaxUploadBytes = 10 * 1024 * 1024

// minExtractedChars is the least amount of text a document must yield to be
// worth ingesting. Scanned PDFs with no text layer fail here.
const minExtractedChars = 50

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// SupportedExtensions lists the upload formats the extractor handles.
func (s *FileExtractService) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

// ValidateUpload rejects oversized files, unsupported extensions, and files
// whose leading bytes do not match their claimed format.
func (s *FileExtractService) ValidateUpload(filename string, size int64, head []byte) error {
	if size > MaxUploadBytes {
		return &ValidationError{Fields: map[string]string{
			"file": "Arquivo muito grande. O limite é 10MB.",
		}}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		if !bytes.HasPrefix(head, []byte("%PDF")) {
			return &ValidationError{Fields: map[string]string{
				"file": "O arquivo não parece ser um PDF válido.",
			}}
		}
	case ".docx":
		// DOCX is a zip container
		if !bytes.HasPrefix(head, []byte("PK\x03\x04")) {
			return &ValidationError{Fields: map[string]string{
				"file": "O arquivo não parece ser um DOCX válido.",
			}}
		}
	case ".txt":
		if bytes.ContainsRune(head, 0) {
			return &ValidationError{Fields: map[string]string{
				"file": "O arquivo de texto contém dados binários.",
			}}
		}
	default:
		return &ValidationError{Fields: map[string]string{
			"file": "Tipo de arquivo não suportado. Use PDF, DOCX ou TXT.",
		}}
	}

	return nil
}

func (s *FileExtractService) ExtractTextFromPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch ext {
	case ".txt":
		text, err = s.extractTXT(path)
	case ".pdf":
		text, err = s.extractPDF(path)
	case ".docx":
		text, err = s.extractDOCX(path)
	default:
		return "", fmt.Errorf("unsupported file type for text extraction: %s", ext)
	}
	if err != nil {
		return "", err
	}

	if len(text) < minExtractedChars {
		return "", fmt.Errorf("could not extract enough readable text from the file")
	}

	return text, nil
}

func (s *FileExtractService) extractTXT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	text := normalizeExtractedText(string(b))
	if text == "" {
		return "", fmt.Errorf("text file is empty")
	}

	return text, nil
}

func (s *FileExtractService) extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}

	return text, nil
}

func (s *FileExtractService) extractDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var documentXML []byte
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			defer rc.Close()

			documentXML, err = io.ReadAll(rc)
			if err != nil {
				return "", err
			}
			break
		}
	}

	if len(documentXML) == 0 {
		return "", fmt.Errorf("docx document.xml not found")
	}

	text := stripDOCXML(documentXML)
	text = normalizeExtractedText(text)
	if text == "" {
		return "", fmt.Errorf("no extractable text found in docx")
	}

	return text, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// DOCX paragraphs and line breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	// Remove all xml tags
	s = xmlTagPattern.ReplaceAllString(s, "")

	// Basic XML entities
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	s = replacer.Replace(s)

	return s
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}

