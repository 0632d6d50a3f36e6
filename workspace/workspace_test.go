package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

// resolve handles macOS /var -> /private/var symlinks in temp paths.
func resolve(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func TestDetectWorkspaceWithoutGit(t *testing.T) {
	tempDir := t.TempDir()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	defer os.Chdir(originalDir)

	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	workspace, err := DetectWorkspace()
	if err != nil {
		t.Fatalf("DetectWorkspace failed: %v", err)
	}
	if resolve(t, workspace) != resolve(t, tempDir) {
		t.Errorf("Expected workspace %s, got %s", tempDir, workspace)
	}
}

func TestDetectWorkspaceFindsGitRoot(t *testing.T) {
	tempDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tempDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git directory: %v", err)
	}
	subDir := filepath.Join(tempDir, "pkg", "inner")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	defer os.Chdir(originalDir)

	if err := os.Chdir(subDir); err != nil {
		t.Fatalf("Failed to change to subdirectory: %v", err)
	}

	workspace, err := DetectWorkspace()
	if err != nil {
		t.Fatalf("DetectWorkspace failed: %v", err)
	}
	if resolve(t, workspace) != resolve(t, tempDir) {
		t.Errorf("Expected workspace %s, got %s", tempDir, workspace)
	}
}

func TestFindGitRoot(t *testing.T) {
	tempDir := t.TempDir()

	if got := findGitRoot(tempDir); got != "" {
		t.Errorf("Expected empty git root, got %s", got)
	}

	if err := os.MkdirAll(filepath.Join(tempDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git directory: %v", err)
	}

	if got := findGitRoot(tempDir); got != tempDir {
		t.Errorf("Expected git root %s, got %s", tempDir, got)
	}

	nested := filepath.Join(tempDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create nested directory: %v", err)
	}
	if got := findGitRoot(nested); got != tempDir {
		t.Errorf("Expected git root %s from nested dir, got %s", tempDir, got)
	}

	if got := findGitRoot("/nonexistent/path"); got != "" {
		t.Errorf("Expected empty git root for non-existent path, got %s", got)
	}
}

func TestEnsureQuillDir(t *testing.T) {
	tempDir := t.TempDir()

	if err := EnsureQuillDir(tempDir); err != nil {
		t.Fatalf("EnsureQuillDir failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(tempDir, ".quill"))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected .quill directory, got %v (%v)", info, err)
	}

	// Second call is a no-op.
	if err := EnsureQuillDir(tempDir); err != nil {
		t.Fatalf("EnsureQuillDir on existing dir failed: %v", err)
	}
}
