package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// DefaultTimeout bounds a worker run when ProcessRunner.Timeout is zero
const DefaultTimeout = 2 * time.Minute

// Runner composes a request somewhere other than the calling goroutine
type Runner interface {
	Run(ctx context.Context, req Request) (*esign.Attrs, error)
}

// ProcessRunner starts Command once per request and waits for it. The child
// is killed when Timeout elapses or ctx is done.
type ProcessRunner struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// NewProcessRunner returns a runner that starts binary with args, or in
// worker mode when no args are given.
func NewProcessRunner(binary string, timeout time.Duration, args ...string) *ProcessRunner {
	if len(args) == 0 {
		args = []string{"--mode=worker"}
	}
	return &ProcessRunner{
		Command: binary,
		Args:    args,
		Timeout: timeout,
	}
}

// Run sends req to a fresh worker process and returns its composite entry
func (p *ProcessRunner) Run(ctx context.Context, req Request) (*esign.Attrs, error) {
	if p.Command == "" {
		return nil, pdferrors.New(pdferrors.ErrorTypeWorkerCrashed, "no worker command configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidPayload, err)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.Command, p.Args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// do not hang on grandchildren holding the pipes after the kill
	cmd.WaitDelay = time.Second

	started := time.Now()
	err = cmd.Run()
	log.Printf("Worker %s finished in %v", req.TemplateName, time.Since(started))

	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, pdferrors.Newf(pdferrors.ErrorTypeWorkerTimeout,
				"worker exceeded %v", timeout).WithContext(req.TemplateName)
		}
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeWorkerCrashed,
			fmt.Errorf("worker cancelled: %w", ctxErr)).WithContext(req.TemplateName)
	}
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeWorkerCrashed,
			fmt.Errorf("worker failed: %w", err)).WithContext(lastLine(stderr.String()))
	}

	return decodeResponse(stdout.Bytes())
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
