package wrapper

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/sourcegraph/conc/panics"
)

// LedongthucTextReader implements TextReader using ledongthuc/pdf. It is
// independent of pdfcpu, so reading back rendered output checks what a
// different parser actually sees.
type LedongthucTextReader struct {
	config FactoryConfig
}

// NewLedongthucTextReader creates a new ledongthuc text reader
func NewLedongthucTextReader(config FactoryConfig) *LedongthucTextReader {
	return &LedongthucTextReader{config: config}
}

// GetLibraryType returns the library type
func (l *LedongthucTextReader) GetLibraryType() LibraryType {
	return LibraryLedongthuc
}

// PageTexts returns the plain text of each page, in page order
func (l *LedongthucTextReader) PageTexts(data []byte) ([]string, error) {
	if l.config.MaxFileSize > 0 && int64(len(data)) > l.config.MaxFileSize {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "page_texts",
			Err:     fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge.Err, len(data), l.config.MaxFileSize),
		}
	}

	var (
		texts []string
		err   error
	)
	// the parser panics on some malformed inputs
	var pc panics.Catcher
	pc.Try(func() {
		texts, err = l.pageTexts(data)
	})
	if r := pc.Recovered(); r != nil {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "page_texts",
			Err:     fmt.Errorf("parser panic: %v", r.Value),
		}
	}
	return texts, err
}

func (l *LedongthucTextReader) pageTexts(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "page_texts",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}

	texts := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &WrapperError{
				Library: LibraryLedongthuc,
				Op:      "page_texts",
				Err:     fmt.Errorf("failed to extract text from page %d: %w", i, err),
			}
		}
		texts = append(texts, text)
	}
	return texts, nil
}
