package tools

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/wardenhq/warden/internal/registry"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// pathProp is the shared shape of a workspace-confined path argument.
func pathProp(desc string) registry.Property {
	return registry.Property{Type: "string", Description: desc, Path: true}
}

func fileTools(workspaceRoot string) []*registry.Tool {
	return []*registry.Tool{
		{
			Name:        "list_dir",
			Description: "List the files and folders in a workspace directory.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Properties: map[string]registry.Property{
					"path": {Type: "string", Description: "Directory to list, relative to the workspace root.", Path: true, Default: "."},
				},
			},
			Execute: listDir,
		},
		{
			Name:        "read_file",
			Description: "Read the contents of a text file in the workspace.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path"},
				Properties: map[string]registry.Property{
					"path": pathProp("File to read."),
				},
			},
			Execute: readFile,
		},
		{
			Name:        "write_file",
			Description: "Write content to a workspace file, overwriting if it exists.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path", "content"},
				Properties: map[string]registry.Property{
					"path":    pathProp("File to write."),
					"content": {Type: "string", Description: "Text content to write."},
				},
			},
			Execute: writeFile,
		},
		{
			Name:        "delete_file",
			Description: "Delete a single file in the workspace.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path"},
				Properties: map[string]registry.Property{
					"path": pathProp("File to delete."),
				},
			},
			Execute: deleteFile,
		},
		{
			Name:        "create_folder",
			Description: "Create a folder (and any missing parents) in the workspace.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path"},
				Properties: map[string]registry.Property{
					"path": pathProp("Folder to create."),
				},
			},
			Execute: createFolder,
		},
		{
			Name:        "delete_folder",
			Description: "Delete a folder and all of its contents in the workspace.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path"},
				Properties: map[string]registry.Property{
					"path": pathProp("Folder to delete."),
				},
			},
			Execute: deleteFolder,
		},
		{
			Name:        "file_info",
			Description: "Get metadata (size, type, timestamps, mode) for a workspace file or folder.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path"},
				Properties: map[string]registry.Property{
					"path": pathProp("File or folder to inspect."),
				},
			},
			Execute: fileInfo,
		},
		{
			Name:        "search_files",
			Description: "Find workspace files whose name matches a glob pattern, recursively.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"pattern"},
				Properties: map[string]registry.Property{
					"pattern": {Type: "string", Description: "Filename glob, e.g. *.go"},
					"root":    {Type: "string", Description: "Directory to search from.", Path: true, Default: "."},
				},
			},
			Execute: searchFiles,
		},
		{
			Name:        "directory_tree",
			Description: "Render a tree view of a workspace directory up to a given depth.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Properties: map[string]registry.Property{
					"path":      {Type: "string", Description: "Directory to visualize.", Path: true, Default: "."},
					"max_depth": {Type: "integer", Description: "Maximum depth to descend.", Default: 3},
				},
			},
			Execute: directoryTree,
		},
		{
			Name:        "search_replace",
			Description: "Replace occurrences of a string in a workspace file. Returns the replacement count.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path", "search", "replace"},
				Properties: map[string]registry.Property{
					"path":    pathProp("File to edit."),
					"search":  {Type: "string", Description: "String to search for."},
					"replace": {Type: "string", Description: "Replacement string."},
					"count":   {Type: "integer", Description: "Maximum replacements (-1 = all).", Default: -1},
				},
			},
			Execute: searchReplace,
		},
		{
			Name:        "file_diff",
			Description: "Show a line diff between two workspace files.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"path1", "path2"},
				Properties: map[string]registry.Property{
					"path1":   pathProp("First file."),
					"path2":   pathProp("Second file."),
					"context": {Type: "integer", Description: "Unchanged lines to keep around each change.", Default: 3},
				},
			},
			Execute: fileDiff,
		},
		{
			Name:        "zip_files",
			Description: "Create a zip archive from a list of workspace files.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"zip_path", "files"},
				Properties: map[string]registry.Property{
					"zip_path": pathProp("Archive file to create."),
					"files":    {Type: "array", Description: "Workspace files to include, relative to the workspace root."},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return zipFiles(ctx, workspaceRoot, args)
			},
		},
		{
			Name:        "unzip_file",
			Description: "Extract a zip archive into a workspace directory.",
			Category:    v1alpha1.CategoryFiles,
			Schema: registry.Schema{
				Required: []string{"zip_path", "extract_to"},
				Properties: map[string]registry.Property{
					"zip_path":   pathProp("Archive file to extract."),
					"extract_to": pathProp("Directory to extract into."),
				},
			},
			Execute: unzipFile,
		},
	}
}

func listDir(_ context.Context, args map[string]any) (string, error) {
	entries, err := os.ReadDir(args["path"].(string))
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	out, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func readFile(_ context.Context, args map[string]any) (string, error) {
	data, err := os.ReadFile(args["path"].(string))
	if err != nil {
		return "", err
	}
	return clamp(string(data)), nil
}

func writeFile(_ context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)
	content := args["content"].(string)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

func deleteFile(_ context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return "deleted " + path, nil
}

func createFolder(_ context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return "created " + path, nil
}

func deleteFolder(_ context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)
	if err := os.RemoveAll(path); err != nil {
		return "", err
	}
	return "deleted " + path, nil
}

func fileInfo(_ context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(map[string]any{
		"path":     path,
		"isDir":    info.IsDir(),
		"size":     info.Size(),
		"modified": info.ModTime(),
		"mode":     info.Mode().String(),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func searchFiles(_ context.Context, args map[string]any) (string, error) {
	root := args["root"].(string)
	pattern := args["pattern"].(string)

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		ok, matchErr := filepath.Match(pattern, d.Name())
		if matchErr != nil {
			return matchErr
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	out, err := json.Marshal(matches)
	if err != nil {
		return "", err
	}
	return clamp(string(out)), nil
}

func directoryTree(_ context.Context, args map[string]any) (string, error) {
	root := args["path"].(string)
	maxDepth := args["max_depth"].(int)

	var b strings.Builder
	b.WriteString(root + "\n")
	if err := writeTree(&b, root, "", 0, maxDepth); err != nil {
		return "", err
	}
	return clamp(b.String()), nil
}

func writeTree(b *strings.Builder, dir, prefix string, depth, maxDepth int) error {
	if depth > maxDepth {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.WriteString(prefix + "[unreadable]\n")
		return nil
	}
	for i, e := range entries {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(entries)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + connector + e.Name() + "\n")
		if e.IsDir() {
			if err := writeTree(b, filepath.Join(dir, e.Name()), childPrefix, depth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

func fileDiff(_ context.Context, args map[string]any) (string, error) {
	path1 := args["path1"].(string)
	path2 := args["path2"].(string)
	ctxLines := args["context"].(int)

	left, err := os.ReadFile(path1)
	if err != nil {
		return "", err
	}
	right, err := os.ReadFile(path2)
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineTable := dmp.DiffLinesToChars(string(left), string(right))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineTable)

	changed := false
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", path1, path2)
	for i, d := range diffs {
		lines := diffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			changed = true
			writeDiffLines(&b, "-", lines)
		case diffmatchpatch.DiffInsert:
			changed = true
			writeDiffLines(&b, "+", lines)
		case diffmatchpatch.DiffEqual:
			head, tail := ctxLines, ctxLines
			if i == 0 {
				head = 0
			}
			if i == len(diffs)-1 {
				tail = 0
			}
			if len(lines) <= head+tail {
				writeDiffLines(&b, " ", lines)
				continue
			}
			writeDiffLines(&b, " ", lines[:head])
			b.WriteString("...\n")
			writeDiffLines(&b, " ", lines[len(lines)-tail:])
		}
	}
	if !changed {
		return "files are identical", nil
	}
	return clamp(b.String()), nil
}

func diffLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func writeDiffLines(b *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		b.WriteString(prefix + l + "\n")
	}
}

// workspacePath confines a relative archive member to the workspace
// root. Members bypass the sandbox's path rewriting because they travel
// inside an array argument, so the same boundary is enforced here.
func workspacePath(root, p string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	abs := filepath.Clean(p)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q resolves outside the workspace root", p)
	}
	return abs, nil
}

func zipFiles(_ context.Context, workspaceRoot string, args map[string]any) (string, error) {
	zipPath := args["zip_path"].(string)
	members, ok := args["files"].([]any)
	if !ok || len(members) == 0 {
		return "", fmt.Errorf("files must be a non-empty list of workspace paths")
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, m := range members {
		rel, ok := m.(string)
		if !ok {
			return "", fmt.Errorf("files entries must be strings, got %T", m)
		}
		abs, err := workspacePath(workspaceRoot, rel)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return "", err
		}
		entry, err := w.Create(filepath.Base(abs))
		if err != nil {
			return "", err
		}
		if _, err := entry.Write(data); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("archived %d files to %s", len(members), zipPath), nil
}

func unzipFile(_ context.Context, args map[string]any) (string, error) {
	zipPath := args["zip_path"].(string)
	extractTo := args["extract_to"].(string)

	r, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		r.Close()
		return "", fmt.Errorf("archive entry escapes the extraction directory")
	}
	if err != nil {
		return "", err
	}
	defer r.Close()

	if err := os.MkdirAll(extractTo, 0o755); err != nil {
		return "", err
	}

	count := 0
	for _, f := range r.File {
		target := filepath.Join(extractTo, f.Name)
		// Entry names are attacker-controlled; a ".." component must
		// not climb out of the extraction directory.
		rel, err := filepath.Rel(extractTo, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("archive entry %q escapes the extraction directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", err
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return "", err
		}
		count++
	}
	return fmt.Sprintf("extracted %d files to %s", count, extractTo), nil
}

func searchReplace(_ context.Context, args map[string]any) (string, error) {
	path := args["path"].(string)
	search := args["search"].(string)
	replace := args["replace"].(string)
	count := args["count"].(int)

	if search == "" {
		return "", fmt.Errorf("search string must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)

	n := strings.Count(content, search)
	if count >= 0 && n > count {
		n = count
	}
	updated := strings.Replace(content, search, replace, count)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n), nil
}
