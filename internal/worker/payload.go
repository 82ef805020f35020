// Package worker runs template composition in a separate process. The caller
// sends one Request on the child's stdin and reads exactly one Response from
// its stdout; nothing is streamed.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sourcegraph/conc/panics"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// Request is everything the worker needs to compose a template. The
// template is reloaded from disk on the worker side.
type Request struct {
	TemplateDir  string      `json:"template_dir"`
	TemplateName string      `json:"template_name"`
	Roles        []string    `json:"roles,omitempty"`
	Fill         *esign.Fill `json:"fill,omitempty"`
	Sequence     int         `json:"sequence"`
}

// Response carries either the composite entry or a failure
type Response struct {
	Entry     *esign.Attrs `json:"entry,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorType string       `json:"error_type,omitempty"`
	Panic     string       `json:"panic,omitempty"`
}

// ComposeFunc builds the composite entry for a request
type ComposeFunc func(ctx context.Context, req Request) (*esign.Attrs, error)

// Serve reads one request from r, composes it and writes one response to w.
// A panic in compose is reported in the response rather than killing the
// process with a partial payload.
func Serve(ctx context.Context, r io.Reader, w io.Writer, compose ComposeFunc) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		resp := Response{
			Error:     fmt.Sprintf("failed to decode request: %v", err),
			ErrorType: pdferrors.ErrorTypeInvalidPayload.String(),
		}
		if werr := writeResponse(w, resp); werr != nil {
			return werr
		}
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPayload, err)
	}

	var (
		entry *esign.Attrs
		err   error
		pc    panics.Catcher
	)
	pc.Try(func() {
		entry, err = compose(ctx, req)
	})

	var resp Response
	switch {
	case pc.Recovered() != nil:
		resp.Panic = fmt.Sprint(pc.Recovered().Value)
	case err != nil:
		resp.Error = err.Error()
		resp.ErrorType = pdferrors.TypeOf(err).String()
	default:
		resp.Entry = entry
	}
	return writeResponse(w, resp)
}

func writeResponse(w io.Writer, resp Response) error {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, fmt.Errorf("failed to write response: %w", err))
	}
	return nil
}

// decodeResponse parses a worker's stdout into the composite entry
func decodeResponse(stdout []byte) (*esign.Attrs, error) {
	var resp Response
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidPayload, err).
			WithContext(excerpt(stdout))
	}

	switch {
	case resp.Panic != "":
		return nil, pdferrors.Newf(pdferrors.ErrorTypeWorkerCrashed, "worker panicked: %s", resp.Panic)
	case resp.Error != "":
		errType := pdferrors.ParseErrorType(resp.ErrorType)
		if errType == pdferrors.ErrorTypeUnknown {
			errType = pdferrors.ErrorTypeWorkerCrashed
		}
		return nil, pdferrors.New(errType, resp.Error)
	case resp.Entry == nil:
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidPayload, "worker response has no entry")
	}
	return resp.Entry, nil
}

func excerpt(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
