package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OverlayError
		want string
	}{
		{
			name: "message only",
			err:  New(ErrorTypeMalformedGeometry, "x_position is not a number"),
			want: "[MALFORMED_GEOMETRY] x_position is not a number",
		},
		{
			name: "with context",
			err:  New(ErrorTypeWorkerCrashed, "worker failed").WithContext("stderr tail"),
			want: "[WORKER_CRASHED] worker failed: stderr tail",
		},
		{
			name: "wrapped",
			err:  Wrap(ErrorTypeIO, os.ErrNotExist),
			want: "[IO] file does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestOverlayError_Is(t *testing.T) {
	err := fmt.Errorf("loading: %w", Wrap(ErrorTypeIO, os.ErrNotExist).WithFile("a.pdf"))

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrPDFModel)

	// a populated error is not a sentinel
	assert.False(t, errors.Is(ErrIO, New(ErrorTypeIO, "other")))
}

func TestParseErrorType(t *testing.T) {
	for et := ErrorTypeMalformedGeometry; et <= ErrorTypeInvalidPayload; et++ {
		assert.Equal(t, et, ParseErrorType(et.String()))
	}
	assert.Equal(t, ErrorTypeUnknown, ParseErrorType("NOPE"))
	assert.Equal(t, ErrorTypeUnknown, ParseErrorType(""))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeWorkerTimeout, TypeOf(fmt.Errorf("x: %w", New(ErrorTypeWorkerTimeout, "slow"))))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}

func TestSeverityAndRecoverability(t *testing.T) {
	assert.Equal(t, SeverityWarning, ErrorTypeMissingPage.GetSeverity())
	assert.Equal(t, SeverityFatal, ErrorTypeWorkerTimeout.GetSeverity())
	assert.Equal(t, SeverityError, ErrorTypeMalformedGeometry.GetSeverity())
	assert.True(t, New(ErrorTypeMissingPage, "").Recoverable)
	assert.False(t, New(ErrorTypeIO, "").Recoverable)
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection("doc.pdf")
	assert.Equal(t, "No errors or warnings", ec.Summary())

	ec.Add(New(ErrorTypeMissingPage, "page 9").WithPage(9))
	ec.Add(New(ErrorTypePDFModel, "bad xref").WithFile("other.pdf"))

	errs, warnings := ec.Count()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, warnings)
	require.Len(t, ec.Warnings, 1)
	assert.Equal(t, "doc.pdf", ec.Warnings[0].FilePath)
	assert.Equal(t, "other.pdf", ec.Errors[0].FilePath)
	assert.Equal(t, "Found 1 error(s) and 1 warning(s)", ec.Summary())
}
