package tools

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")

	out, err := writeFile(context.Background(), map[string]any{
		"path":    path,
		"content": "hello warden",
	})
	if err != nil {
		t.Fatalf("unexpected error on write: %v", err)
	}
	if !strings.Contains(out, "12 bytes") {
		t.Errorf("unexpected write output %q", out)
	}

	got, err := readFile(context.Background(), map[string]any{"path": path})
	if err != nil {
		t.Fatalf("unexpected error on read: %v", err)
	}
	if got != "hello warden" {
		t.Errorf("expected %q, got %q", "hello warden", got)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")

	if _, err := writeFile(context.Background(), map[string]any{
		"path":    path,
		"content": "deep",
	}); err != nil {
		t.Fatalf("unexpected error on write: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestListDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("unexpected error creating dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	out, err := listDir(context.Background(), map[string]any{"path": root})
	if err != nil {
		t.Fatalf("unexpected error on listDir: %v", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		t.Fatalf("unexpected error decoding output: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(names))
	}

	// Directories carry a trailing slash.
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["file.txt"] || !found["sub/"] {
		t.Errorf("unexpected entries %v", names)
	}
}

func TestDeleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	if _, err := deleteFile(context.Background(), map[string]any{"path": path}); err != nil {
		t.Fatalf("unexpected error on delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat returned %v", err)
	}

	// Deleting a missing file reports the failure.
	if _, err := deleteFile(context.Background(), map[string]any{"path": path}); err == nil {
		t.Error("expected error deleting a missing file")
	}
}

func TestCreateAndDeleteFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir")

	if _, err := createFolder(context.Background(), map[string]any{"path": path}); err != nil {
		t.Fatalf("unexpected error on create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	if _, err := deleteFolder(context.Background(), map[string]any{"path": filepath.Dir(path)}); err != nil {
		t.Fatalf("unexpected error on delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected folder removed, stat returned %v", err)
	}
}

func TestFileInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.txt")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	out, err := fileInfo(context.Background(), map[string]any{"path": path})
	if err != nil {
		t.Fatalf("unexpected error on fileInfo: %v", err)
	}

	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("unexpected error decoding output: %v", err)
	}
	if info["isDir"] != false {
		t.Errorf("expected isDir false, got %v", info["isDir"])
	}
	if info["size"] != float64(5) {
		t.Errorf("expected size 5, got %v", info["size"])
	}
}

func TestSearchFiles(t *testing.T) {
	root := t.TempDir()
	paths := []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "sub", "util.go"),
		filepath.Join(root, "sub", "readme.md"),
	}
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("unexpected error creating dir: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("unexpected error creating file: %v", err)
		}
	}

	out, err := searchFiles(context.Background(), map[string]any{
		"root":    root,
		"pattern": "*.go",
	})
	if err != nil {
		t.Fatalf("unexpected error on search: %v", err)
	}

	var matches []string
	if err := json.Unmarshal([]byte(out), &matches); err != nil {
		t.Fatalf("unexpected error decoding output: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(matches), matches)
	}
}

func TestDirectoryTree(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "pkg", "deep", "deeper"), 0o755); err != nil {
		t.Fatalf("unexpected error creating dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "top.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	// max_depth 1 descends one level past the root's entries, so the
	// second level is shown and the third is not.
	out, err := directoryTree(context.Background(), map[string]any{
		"path":      root,
		"max_depth": 1,
	})
	if err != nil {
		t.Fatalf("unexpected error on tree: %v", err)
	}

	if !strings.Contains(out, "pkg") || !strings.Contains(out, "top.txt") {
		t.Errorf("expected tree to include top-level entries:\n%s", out)
	}
	if !strings.Contains(out, "deep") {
		t.Errorf("expected tree to include second-level entries:\n%s", out)
	}
	if strings.Contains(out, "deeper") {
		t.Errorf("expected depth bound to hide third-level entries:\n%s", out)
	}
}

func TestSearchReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("foo bar foo baz foo"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	out, err := searchReplace(context.Background(), map[string]any{
		"path":    path,
		"search":  "foo",
		"replace": "qux",
		"count":   -1,
	})
	if err != nil {
		t.Fatalf("unexpected error on replace: %v", err)
	}
	if out != "3" {
		t.Errorf("expected 3 replacements, got %s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading back: %v", err)
	}
	if string(data) != "qux bar qux baz qux" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestSearchReplaceBounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("aaa"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	out, err := searchReplace(context.Background(), map[string]any{
		"path":    path,
		"search":  "a",
		"replace": "b",
		"count":   2,
	})
	if err != nil {
		t.Fatalf("unexpected error on replace: %v", err)
	}
	if out != "2" {
		t.Errorf("expected 2 replacements, got %s", out)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "bba" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestSearchReplaceEmptySearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	if _, err := searchReplace(context.Background(), map[string]any{
		"path":    path,
		"search":  "",
		"replace": "y",
		"count":   -1,
	}); err == nil {
		t.Error("expected error for empty search string")
	}
}

func TestClampTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", maxOutput+100)
	got := clamp(long)
	if len(got) >= len(long) {
		t.Errorf("expected truncation, got %d bytes", len(got))
	}
	if !strings.HasSuffix(got, truncationNotice) {
		t.Error("expected truncation notice suffix")
	}
}

func TestFileDiff(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	if err := os.WriteFile(a, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}
	if err := os.WriteFile(b, []byte("one\nTWO\nthree\n"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	out, err := fileDiff(context.Background(), map[string]any{
		"path1":   a,
		"path2":   b,
		"context": 3,
	})
	if err != nil {
		t.Fatalf("unexpected error on diff: %v", err)
	}
	for _, want := range []string{"--- " + a, "+++ " + b, "-two", "+TWO", " one", " three"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected diff to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFileDiffIdentical(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("same\ncontent\n"), 0o644); err != nil {
			t.Fatalf("unexpected error creating file: %v", err)
		}
	}

	out, err := fileDiff(context.Background(), map[string]any{
		"path1":   a,
		"path2":   b,
		"context": 3,
	})
	if err != nil {
		t.Fatalf("unexpected error on diff: %v", err)
	}
	if out != "files are identical" {
		t.Errorf("expected identical notice, got %q", out)
	}
}

func TestFileDiffCollapsesContext(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")

	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "line")
	}
	base := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(a, []byte("start\n"+base+"end\n"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}
	if err := os.WriteFile(b, []byte("START\n"+base+"END\n"), 0o644); err != nil {
		t.Fatalf("unexpected error creating file: %v", err)
	}

	out, err := fileDiff(context.Background(), map[string]any{
		"path1":   a,
		"path2":   b,
		"context": 2,
	})
	if err != nil {
		t.Fatalf("unexpected error on diff: %v", err)
	}
	if !strings.Contains(out, "...\n") {
		t.Errorf("expected collapsed context marker, got:\n%s", out)
	}
	if got := strings.Count(out, " line\n"); got != 4 {
		t.Errorf("expected 4 context lines, got %d:\n%s", got, out)
	}
}

func TestZipThenUnzip(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{"a.txt": "alpha", "b.txt": "beta"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatalf("unexpected error creating file: %v", err)
		}
	}

	zipPath := filepath.Join(root, "bundle.zip")
	out, err := zipFiles(context.Background(), root, map[string]any{
		"zip_path": zipPath,
		"files":    []any{"a.txt", "b.txt"},
	})
	if err != nil {
		t.Fatalf("unexpected error on zip: %v", err)
	}
	if !strings.Contains(out, "archived 2 files") {
		t.Errorf("unexpected zip output %q", out)
	}

	dest := filepath.Join(root, "unpacked")
	out, err = unzipFile(context.Background(), map[string]any{
		"zip_path":   zipPath,
		"extract_to": dest,
	})
	if err != nil {
		t.Fatalf("unexpected error on unzip: %v", err)
	}
	if !strings.Contains(out, "extracted 2 files") {
		t.Errorf("unexpected unzip output %q", out)
	}

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatalf("unexpected error reading extracted file: %v", err)
	}
	if string(got) != "alpha" {
		t.Errorf("expected extracted content alpha, got %q", got)
	}
}

func TestZipFilesRejectsEscapingMember(t *testing.T) {
	root := t.TempDir()

	_, err := zipFiles(context.Background(), root, map[string]any{
		"zip_path": filepath.Join(root, "bundle.zip"),
		"files":    []any{"../../etc/passwd"},
	})
	if err == nil {
		t.Fatal("expected error for member outside the workspace, got nil")
	}
	if !strings.Contains(err.Error(), "outside the workspace root") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestZipFilesRejectsEmptyList(t *testing.T) {
	root := t.TempDir()

	_, err := zipFiles(context.Background(), root, map[string]any{
		"zip_path": filepath.Join(root, "bundle.zip"),
		"files":    []any{},
	})
	if err == nil {
		t.Fatal("expected error for empty file list, got nil")
	}
}

func TestUnzipFileRejectsSlipEntry(t *testing.T) {
	root := t.TempDir()
	zipPath := filepath.Join(root, "evil.zip")

	out, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("unexpected error creating archive: %v", err)
	}
	w := zip.NewWriter(out)
	entry, err := w.CreateHeader(&zip.FileHeader{Name: "../outside.txt"})
	if err != nil {
		t.Fatalf("unexpected error creating entry: %v", err)
	}
	if _, err := entry.Write([]byte("x")); err != nil {
		t.Fatalf("unexpected error writing entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error closing archive: %v", err)
	}
	out.Close()

	_, err = unzipFile(context.Background(), map[string]any{
		"zip_path":   zipPath,
		"extract_to": filepath.Join(root, "unpacked"),
	})
	if err == nil {
		t.Fatal("expected error for escaping archive entry, got nil")
	}
	if !strings.Contains(err.Error(), "escapes the extraction directory") {
		t.Errorf("unexpected error %v", err)
	}
}
