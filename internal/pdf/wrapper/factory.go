package wrapper

import (
	"fmt"
)

// PDFLibraryFactory creates the document model and text reader implementations
type PDFLibraryFactory struct {
	config FactoryConfig
}

// FactoryConfig contains configuration options for the factory
type FactoryConfig struct {
	// MaxFileSize limits the size of a PDF held in memory (in bytes)
	MaxFileSize int64 `json:"max_file_size"`
}

// NewPDFLibraryFactory creates a new factory with default configuration
func NewPDFLibraryFactory() *PDFLibraryFactory {
	return &PDFLibraryFactory{
		config: FactoryConfig{
			MaxFileSize: 100 * 1024 * 1024, // 100MB
		},
	}
}

// NewPDFLibraryFactoryWithConfig creates a factory with custom configuration
func NewPDFLibraryFactoryWithConfig(config FactoryConfig) *PDFLibraryFactory {
	return &PDFLibraryFactory{config: config}
}

// Create instantiates a writable PDF library. Only pdfcpu can modify and
// serialize documents.
func (f *PDFLibraryFactory) Create(libType LibraryType) (PDFLibrary, error) {
	switch libType {
	case LibraryPDFCPU:
		return NewPDFCPULibrary(f.config), nil
	default:
		return nil, &WrapperError{
			Library: libType,
			Op:      "create",
			Err:     fmt.Errorf("%w: %s cannot write documents", ErrUnsupportedLibrary.Err, libType),
		}
	}
}

// CreateTextReader instantiates a text reader
func (f *PDFLibraryFactory) CreateTextReader(libType LibraryType) (TextReader, error) {
	switch libType {
	case LibraryLedongthuc:
		return NewLedongthucTextReader(f.config), nil
	default:
		return nil, &WrapperError{
			Library: libType,
			Op:      "create_text_reader",
			Err:     fmt.Errorf("%w: %s cannot extract text", ErrUnsupportedLibrary.Err, libType),
		}
	}
}

// GetConfig returns the current factory configuration
func (f *PDFLibraryFactory) GetConfig() FactoryConfig {
	return f.config
}
