package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines every file the service touches to one template root
type PathValidator struct {
	rootDirectory string
}

// NewPathValidator creates a new path validator rooted at rootDirectory
func NewPathValidator(rootDirectory string) (*PathValidator, error) {
	if rootDirectory == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}

	abs, err := filepath.Abs(rootDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	// The root may not exist yet; an import creates it.
	return &PathValidator{rootDirectory: filepath.Clean(abs)}, nil
}

// GetRootDirectory returns the absolute template root
func (v *PathValidator) GetRootDirectory() string {
	return v.rootDirectory
}

// ValidateTemplateName checks that name can be used as a file stem inside
// the root: no separators, no parent references, no hidden files.
func (v *PathValidator) ValidateTemplateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("template name cannot be empty")
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("template name must not contain path separators: %q", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("template name must not start with a dot: %q", name)
	}
	return nil
}

// ValidatePath checks that path, after resolving symlinks, is inside the root
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	isWithin, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !isWithin {
		return fmt.Errorf("path is outside template directory: %s", path)
	}
	return nil
}

// IsPathWithinDirectory checks if a path is within the root directory
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	realDir := v.rootDirectory
	if resolved, err := filepath.EvalSymlinks(realDir); err == nil {
		realDir = resolved
	}

	// Resolve the deepest existing ancestor so a symlinked parent of a file
	// that does not exist yet cannot escape the root.
	realPath := resolveExisting(cleanPath)

	within := func(p, dir string) bool {
		return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
	}
	pathOk := within(cleanPath, v.rootDirectory) || within(cleanPath, realDir)
	realPathOk := within(realPath, v.rootDirectory) || within(realPath, realDir)

	return pathOk && realPathOk, nil
}

func resolveExisting(path string) string {
	var rest []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path
		}
		rest = append([]string{filepath.Base(current)}, rest...)
		current = parent
	}
}

// NormalizePath returns an absolute path inside the root. Relative paths are
// taken relative to the root.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	path = strings.ReplaceAll(path, "\x00", "")

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.rootDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// EnsureDirectory normalizes dirPath and creates it if needed
func (v *PathValidator) EnsureDirectory(dirPath string) (string, error) {
	normalized, err := v.NormalizePath(dirPath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(normalized)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("path is not a directory: %s", dirPath)
	case err == nil:
		return normalized, nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(normalized, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
		return normalized, nil
	default:
		return "", fmt.Errorf("cannot access directory: %w", err)
	}
}
