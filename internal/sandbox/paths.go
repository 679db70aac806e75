package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveRoot turns the configured workspace root into an absolute,
// symlink-free path. EvalSymlinks is best-effort: if the directory does
// not exist yet the absolute path is used as-is.
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// confinePath resolves p against the workspace root and verifies the
// result stays inside it. Relative paths are joined to the root;
// absolute paths are accepted only when they already lie within it.
// Symlinks are resolved before the boundary check so a link pointing
// outside the root cannot smuggle an escape.
func (s *Sandbox) confinePath(p string) (string, error) {
	cleaned := filepath.Clean(p)
	if cleaned == "" {
		cleaned = "."
	}

	var candidate string
	if filepath.IsAbs(cleaned) {
		candidate = cleaned
	} else {
		candidate = filepath.Join(s.root, cleaned)
	}

	// Resolve the whole candidate if it exists; otherwise resolve the
	// deepest existing ancestor and rejoin the missing trailing
	// segments, so an escape via a symlinked ancestor is still revealed
	// for paths that are about to be created, however deep below it.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else {
		ancestor := candidate
		var missing []string
		for {
			parent := filepath.Dir(ancestor)
			if parent == ancestor {
				break
			}
			missing = append(missing, filepath.Base(ancestor))
			ancestor = parent
			resolved, err := filepath.EvalSymlinks(ancestor)
			if err != nil {
				continue
			}
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			candidate = resolved
			break
		}
	}

	rel, err := filepath.Rel(s.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", &Denial{
			Reason:  ReasonPathEscape,
			Message: fmt.Sprintf("path %q resolves outside the workspace root", p),
		}
	}

	return candidate, nil
}
