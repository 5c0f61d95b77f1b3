package services

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// ErrUnsupportedFile marks an upload whose extension is not recognized.
// The ingestion pipeline skips such files instead of failing the batch.
var ErrUnsupportedFile = errors.New("unsupported file type")

func init() {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			log.Printf("WARN: Failed to set Unidoc license key: %v. PDF processing will fail.", err)
		}
	}
}

// ExtractText decodes one uploaded payload into plain text based on its
// filename extension. Plain text and markdown pass through; PDFs go
// through page-by-page text extraction.
func ExtractText(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md":
		return string(content), nil
	case ".pdf":
		return extractTextFromPDF(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
}

// extractTextFromPDF uses UniPDF to get all text from a PDF payload.
func extractTextFromPDF(content []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n") // Add space between pages
	}

	return sb.String(), nil
}
