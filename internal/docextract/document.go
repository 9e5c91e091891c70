package docextract

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxDocumentBytes caps the raw document size accepted from Telegram (10MB)
const MaxDocumentBytes = 10 * 1024 * 1024

// textExtensions are treated as plain text and used verbatim
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".log":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// ExtractText pulls classifiable text out of an uploaded document based on
// its file name. Unsupported formats return empty text with a nil error so
// the caller can fall back to a caption or the file name.
func ExtractText(data []byte, fileName string) (string, error) {
	if len(data) > MaxDocumentBytes {
		return "", fmt.Errorf("document too large (%d bytes), max allowed is %d", len(data), MaxDocumentBytes)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case ext == ".pdf":
		text, err := ExtractPDFText(data)
		if err != nil {
			return "", err
		}
		log.Printf("📄 [DOCEXTRACT] Extracted %d chars from PDF %s", len(text), fileName)
		return text, nil

	case textExtensions[ext]:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("file %s is not valid UTF-8 text", fileName)
		}
		return strings.TrimSpace(string(data)), nil

	default:
		log.Printf("📄 [DOCEXTRACT] Unsupported document type %q, using caption only", ext)
		return "", nil
	}
}
