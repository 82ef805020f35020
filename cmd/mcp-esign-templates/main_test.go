package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-esign-templates/internal/config"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
	"github.com/a3tai/mcp-esign-templates/internal/service"
	"github.com/a3tai/mcp-esign-templates/internal/worker"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
		os.Stdout = originalStdout
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done

	output := buf.String()
	for _, expected := range []string{
		"MCP E-Sign Templates",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name      string
		mode      string
		logLevel  string
		want      io.Writer
		wantFlags int
	}{
		{"stdio quiet", config.ModeStdio, "info", io.Discard, originalFlags},
		{"stdio debug", config.ModeStdio, "debug", os.Stderr, originalFlags},
		{"worker quiet", config.ModeWorker, "warn", io.Discard, originalFlags},
		{"worker debug", config.ModeWorker, "debug", os.Stderr, originalFlags},
		{"server", config.ModeServer, "info", nil, log.LstdFlags | log.Lshortfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.SetOutput(originalOutput)
			log.SetFlags(originalFlags)

			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.logLevel
			setupLogging(cfg)

			if tt.want != nil {
				assert.Equal(t, tt.want, log.Writer())
			}
			assert.Equal(t, tt.wantFlags, log.Flags())
		})
	}
}

func TestNewRunner(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TemplateDirectory = "/srv/templates"

	runner, err := newRunner(cfg)
	require.NoError(t, err)
	self, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, self, runner.Command)
	assert.Equal(t, cfg.WorkerArgs(), runner.Args)
	assert.Equal(t, cfg.WorkerTimeout, runner.Timeout)

	cfg.WorkerBinary = "/usr/local/bin/esign-worker"
	runner, err = newRunner(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/esign-worker", runner.Command)
}

func TestNewService_WorkerHasNoRunner(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TemplateDirectory = t.TempDir()
	cfg.Mode = config.ModeWorker

	svc, err := newService(cfg)
	require.NoError(t, err)

	_, err = svc.Composite(context.Background(), service.CompositeRequest{Name: "any", Isolated: true})
	assert.ErrorIs(t, err, pdferrors.ErrWorkerCrashed)
	assert.ErrorContains(t, err, "not configured")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestRunWorkerMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TemplateDirectory = t.TempDir()
	cfg.Mode = config.ModeWorker
	svc, err := newService(cfg)
	require.NoError(t, err)

	t.Run("bad request is answered", func(t *testing.T) {
		var out bytes.Buffer
		code := runWorkerMode(context.Background(), svc, strings.NewReader("{not json"), &out)
		assert.Equal(t, 0, code)

		var resp worker.Response
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		assert.Equal(t, "INVALID_PAYLOAD", resp.ErrorType)
	})

	t.Run("missing template is answered", func(t *testing.T) {
		var out bytes.Buffer
		req := `{"template_dir": "` + cfg.TemplateDirectory + `", "template_name": "missing", "sequence": 1}`
		code := runWorkerMode(context.Background(), svc, strings.NewReader(req), &out)
		assert.Equal(t, 0, code)

		var resp worker.Response
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		assert.Equal(t, "IO", resp.ErrorType)
		assert.Nil(t, resp.Entry)
	})

	t.Run("unwritable response fails", func(t *testing.T) {
		code := runWorkerMode(context.Background(), svc, strings.NewReader(`{"template_name": "x"}`), failingWriter{})
		assert.Equal(t, 1, code)
	})
}
