package wrapper

import (
	"fmt"
	"io"
)

// PDFLibrary defines the slice of a PDF document model the overlay needs
type PDFLibrary interface {
	// Open parses a complete PDF held in memory
	Open(data []byte) (PDFDocument, error)

	// Library identification
	GetLibraryType() LibraryType
	GetVersion() string
}

// PDFDocument is an opened, mutable PDF
type PDFDocument interface {
	GetPageCount() (int, error)
	// GetPage returns the 1-based page pageNum
	GetPage(pageNum int) (PDFPage, error)
	// Write serializes the whole document. Output is never linearized and
	// never encrypted.
	Write(w io.Writer) error
	Close() error
}

// PDFPage is a single page that drawing operations can be appended to
type PDFPage interface {
	GetNumber() int
	// GetBox returns the page's media box; pages need not start at (0,0)
	GetBox() (*Rectangle, error)
	// EnsureFont makes a standard font available in the page resources and
	// returns the resource name to select it with in a content stream
	EnsureFont(font StandardFont) (string, error)
	// AppendContent adds a new content stream after the existing ones
	AppendContent(content []byte) error
}

// TextReader extracts the plain text of every page of a PDF
type TextReader interface {
	PageTexts(data []byte) ([]string, error)
}

// LibraryType represents the underlying PDF library being used
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
)

// StandardFont is one of the 14 standard Type1 fonts every reader provides
type StandardFont string

const (
	FontCourier StandardFont = "Courier"
)

// Point represents a coordinate point
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rectangle represents a rectangular area
type Rectangle struct {
	LowerLeft  Point   `json:"lower_left"`
	UpperRight Point   `json:"upper_right"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// NewRectangle builds a rectangle from its corners
func NewRectangle(llx, lly, urx, ury float64) *Rectangle {
	return &Rectangle{
		LowerLeft:  Point{X: llx, Y: lly},
		UpperRight: Point{X: urx, Y: ury},
		Width:      urx - llx,
		Height:     ury - lly,
	}
}

// Error types for wrapper operations
type WrapperError struct {
	Library LibraryType `json:"library"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *WrapperError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrUnsupportedLibrary = &WrapperError{Op: "factory", Err: fmt.Errorf("unsupported library type")}
	ErrDocumentClosed     = &WrapperError{Op: "document", Err: fmt.Errorf("document is closed")}
	ErrInvalidPage        = &WrapperError{Op: "page", Err: fmt.Errorf("invalid page number")}
	ErrEncrypted          = &WrapperError{Op: "security", Err: fmt.Errorf("encrypted documents are not supported")}
	ErrFileTooLarge       = &WrapperError{Op: "open", Err: fmt.Errorf("file exceeds maximum size")}
)
