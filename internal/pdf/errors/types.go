package errors

import (
	"errors"
	"fmt"
)

// OverlayError represents a failure while loading, filling or rendering a template
type OverlayError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Recoverable bool      `json:"recoverable"`
	FilePath    string    `json:"file_path,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	Err         error     `json:"-"`
}

// ErrorType represents the categories of failures the overlay core can report
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeMalformedGeometry
	ErrorTypeMissingPage
	ErrorTypeIO
	ErrorTypeInvalidTemplate
	ErrorTypePDFModel
	ErrorTypeWorkerCrashed
	ErrorTypeWorkerTimeout
	ErrorTypeInvalidPayload
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Sentinels usable with errors.Is; they match any OverlayError of the same type.
var (
	ErrMalformedGeometry = &OverlayError{Type: ErrorTypeMalformedGeometry}
	ErrMissingPage       = &OverlayError{Type: ErrorTypeMissingPage}
	ErrIO                = &OverlayError{Type: ErrorTypeIO}
	ErrInvalidTemplate   = &OverlayError{Type: ErrorTypeInvalidTemplate}
	ErrPDFModel          = &OverlayError{Type: ErrorTypePDFModel}
	ErrWorkerCrashed     = &OverlayError{Type: ErrorTypeWorkerCrashed}
	ErrWorkerTimeout     = &OverlayError{Type: ErrorTypeWorkerTimeout}
	ErrInvalidPayload    = &OverlayError{Type: ErrorTypeInvalidPayload}
)

// Error implements the error interface
func (e *OverlayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Context != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type.String(), msg, e.Context)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), msg)
}

// Unwrap returns the underlying cause, if any
func (e *OverlayError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same error type
func (e *OverlayError) Is(target error) bool {
	t, ok := target.(*OverlayError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == "" && t.Err == nil
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeMalformedGeometry:
		return "MALFORMED_GEOMETRY"
	case ErrorTypeMissingPage:
		return "MISSING_PAGE"
	case ErrorTypeIO:
		return "IO"
	case ErrorTypeInvalidTemplate:
		return "INVALID_TEMPLATE"
	case ErrorTypePDFModel:
		return "PDF_MODEL"
	case ErrorTypeWorkerCrashed:
		return "WORKER_CRASHED"
	case ErrorTypeWorkerTimeout:
		return "WORKER_TIMEOUT"
	case ErrorTypeInvalidPayload:
		return "INVALID_PAYLOAD"
	default:
		return "UNKNOWN"
	}
}

// ParseErrorType maps the String form back onto an ErrorType. Unknown names
// map to ErrorTypeUnknown.
func ParseErrorType(name string) ErrorType {
	for et := ErrorTypeMalformedGeometry; et <= ErrorTypeInvalidPayload; et++ {
		if et.String() == name {
			return et
		}
	}
	return ErrorTypeUnknown
}

// TypeOf returns the ErrorType of the first OverlayError in err's chain
func TypeOf(err error) ErrorType {
	var oe *OverlayError
	if errors.As(err, &oe) {
		return oe.Type
	}
	return ErrorTypeUnknown
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeMissingPage:
		return SeverityWarning
	case ErrorTypeMalformedGeometry, ErrorTypeInvalidTemplate, ErrorTypePDFModel, ErrorTypeInvalidPayload:
		return SeverityError
	case ErrorTypeIO, ErrorTypeWorkerCrashed, ErrorTypeWorkerTimeout:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsRecoverable determines if an error type lets rendering continue.
// A field aimed at a page the PDF does not have is simply not drawn.
func (et ErrorType) IsRecoverable() bool {
	return et == ErrorTypeMissingPage
}

// New creates a new OverlayError
func New(errorType ErrorType, message string) *OverlayError {
	return &OverlayError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
	}
}

// Newf creates a new OverlayError with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *OverlayError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap wraps a standard error as an OverlayError
func Wrap(errorType ErrorType, err error) *OverlayError {
	return &OverlayError{
		Type:        errorType,
		Message:     err.Error(),
		Recoverable: errorType.IsRecoverable(),
		Err:         err,
	}
}

// WithContext adds context to an existing OverlayError
func (e *OverlayError) WithContext(context string) *OverlayError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing OverlayError
func (e *OverlayError) WithFile(filePath string) *OverlayError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing OverlayError
func (e *OverlayError) WithPage(pageNumber int) *OverlayError {
	e.PageNumber = pageNumber
	return e
}

// GetSeverity returns the severity of this specific error
func (e *OverlayError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// ErrorCollection manages warnings and errors gathered during one render
type ErrorCollection struct {
	Errors   []*OverlayError `json:"errors"`
	Warnings []*OverlayError `json:"warnings"`
	FilePath string          `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*OverlayError, 0),
		Warnings: make([]*OverlayError, 0),
		FilePath: filePath,
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *OverlayError) {
	if err.FilePath == "" && ec.FilePath != "" {
		err.FilePath = ec.FilePath
	}

	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
