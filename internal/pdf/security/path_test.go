package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name      string
		dir       string
		wantError bool
	}{
		{name: "valid directory", dir: tempDir},
		{name: "empty directory", dir: "", wantError: true},
		{name: "non-existent directory", dir: filepath.Join(tempDir, "later")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewPathValidator(tt.dir)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(validator.GetRootDirectory()))
		})
	}
}

func TestPathValidator_ValidatePath(t *testing.T) {
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	require.NoError(t, os.Mkdir(subDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "valid.yml"), []byte("a: 1"), 0o644))

	validator, err := NewPathValidator(tempDir)
	require.NoError(t, err)

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "empty path", path: "", wantError: true},
		{name: "file in root", path: filepath.Join(tempDir, "valid.yml")},
		{name: "file not yet written", path: filepath.Join(subDir, "out.pdf")},
		{name: "root itself", path: tempDir},
		{name: "file outside directory", path: "/etc/passwd", wantError: true},
		{name: "parent traversal", path: filepath.Join(tempDir, "..", "outside.yml"), wantError: true},
		{name: "sibling with shared prefix", path: tempDir + "-other", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePath(tt.path)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	validator, err := NewPathValidator(root)
	require.NoError(t, err)

	assert.Error(t, validator.ValidatePath(filepath.Join(link, "stolen.pdf")))
}

func TestPathValidator_ValidateTemplateName(t *testing.T) {
	validator, err := NewPathValidator(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{name: "plain", input: "purchase_agreement"},
		{name: "with dots inside", input: "lease.v2"},
		{name: "empty", input: "", wantError: true},
		{name: "slash", input: "a/b", wantError: true},
		{name: "backslash", input: `a\b`, wantError: true},
		{name: "parent", input: "..", wantError: true},
		{name: "hidden", input: ".secret", wantError: true},
		{name: "nul", input: "a\x00b", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateTemplateName(tt.input)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathValidator_NormalizePath(t *testing.T) {
	tempDir := t.TempDir()
	validator, err := NewPathValidator(tempDir)
	require.NoError(t, err)
	root := validator.GetRootDirectory()

	got, err := validator.NormalizePath("lease.yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lease.yml"), got)

	got, err = validator.NormalizePath(filepath.Join(tempDir, "a", "..", "b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b.pdf"), got)

	_, err = validator.NormalizePath("../escape.yml")
	assert.Error(t, err)

	_, err = validator.NormalizePath("")
	assert.Error(t, err)
}

func TestPathValidator_EnsureDirectory(t *testing.T) {
	tempDir := t.TempDir()
	validator, err := NewPathValidator(filepath.Join(tempDir, "templates"))
	require.NoError(t, err)

	dir, err := validator.EnsureDirectory(".")
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(dir, "x.yml")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = validator.EnsureDirectory("x.yml")
	assert.Error(t, err)

	_, err = validator.EnsureDirectory("../elsewhere")
	assert.Error(t, err)
}
