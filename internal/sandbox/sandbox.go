// Package sandbox confines caller-supplied relative paths to a single
// workspace root directory. Every path an agent hands to a filesystem tool
// goes through Resolve before any I/O happens; anything that would land
// outside the root, or that traverses a symlink on the way there, is
// rejected with a typed Violation.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codefionn/werkbote/internal/logger"
)

// Mode describes the operation a path is being resolved for. Write mode
// checks the parent directory for symlinks instead of the target itself,
// because the target may not exist yet.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeList
	ModeDelete
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeList:
		return "list"
	case ModeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Reason identifies why a path was rejected. Callers use it to tell a
// security rejection (never retry with the same input) from a transient
// filesystem failure.
type Reason string

const (
	ReasonEmptyPath        Reason = "empty_path"
	ReasonAbsolutePath     Reason = "absolute_path"
	ReasonDrivePath        Reason = "drive_path"
	ReasonUncPath          Reason = "unc_path"
	ReasonEscapesWorkspace Reason = "escapes_workspace"
	ReasonSymlink          Reason = "symlink_not_allowed"
)

// Violation is the error returned for every sandbox rejection.
type Violation struct {
	Reason Reason
	Path   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("path rejected (%s): %q", v.Reason, v.Path)
}

func reject(reason Reason, path string) *Violation {
	return &Violation{Reason: reason, Path: path}
}

// Sandbox validates paths against one fixed workspace root. The root is
// established at construction and never changes for the lifetime of the
// process.
type Sandbox struct {
	root string
}

// New creates a sandbox rooted at the given directory. The directory is
// created if it does not exist. Construction fails if the root path itself
// is a symlink, since that would defeat every later containment check.
func New(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root %q: %w", root, err)
	}

	if err := ensureRootDir(abs); err != nil {
		return nil, err
	}

	logger.Debug("sandbox: workspace root %s", abs)
	return &Sandbox{root: abs}, nil
}

// Root returns the absolute workspace root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve validates a caller-supplied relative path and returns the
// absolute path inside the workspace root. The checks run in a fixed
// order; the first failure wins. The returned path is valid for one
// operation only and must not be cached, because the filesystem can
// change between resolution and use.
func (s *Sandbox) Resolve(userPath string, mode Mode) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		return "", reject(ReasonEmptyPath, userPath)
	}

	// Reject platform absolute-path spellings up front instead of trusting
	// filepath.Join to treat them as relative.
	if filepath.IsAbs(userPath) || strings.HasPrefix(userPath, "/") || strings.HasPrefix(userPath, `\`) {
		if isUNCPath(userPath) {
			return "", reject(ReasonUncPath, userPath)
		}
		return "", reject(ReasonAbsolutePath, userPath)
	}
	if hasDrivePrefix(userPath) {
		return "", reject(ReasonDrivePath, userPath)
	}
	if isUNCPath(userPath) {
		return "", reject(ReasonUncPath, userPath)
	}

	// Recheck the root on every resolution; it could have been swapped for
	// a symlink since construction.
	if err := ensureRootDir(s.root); err != nil {
		return "", err
	}

	resolved := filepath.Join(s.root, filepath.FromSlash(userPath))

	rel, err := filepath.Rel(s.root, resolved)
	if err != nil || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", reject(ReasonEscapesWorkspace, userPath)
	}

	if err := s.checkSymlinkAncestry(rel, mode); err != nil {
		return "", err
	}

	return resolved, nil
}

// checkSymlinkAncestry walks from the root toward the resolution target and
// fails if any existing component on the way is a symlink or reparse point.
// For writes the target itself is excluded: it may not exist yet and will
// be (re)created by the write. Components that do not exist cannot be
// symlinks and end the walk.
func (s *Sandbox) checkSymlinkAncestry(rel string, mode Mode) error {
	if rel == "." {
		return nil
	}

	segments := strings.Split(rel, string(filepath.Separator))
	if mode == ModeWrite && len(segments) > 0 {
		segments = segments[:len(segments)-1]
	}

	current := s.root
	for _, segment := range segments {
		current = filepath.Join(current, segment)

		info, err := os.Lstat(current)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat %q: %w", current, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return reject(ReasonSymlink, rel)
		}
	}

	return nil
}

// ensureRootDir creates the root directory if missing and verifies it is a
// real directory, not a symlink pointing elsewhere.
func ensureRootDir(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create workspace root %q: %w", root, err)
	}

	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("stat workspace root %q: %w", root, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return reject(ReasonSymlink, root)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace root %q is not a directory", root)
	}

	return nil
}

// hasDrivePrefix reports whether the path starts with a Windows drive
// letter like "C:".
func hasDrivePrefix(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isUNCPath reports whether the path starts with a UNC-style double
// separator such as \\server\share or //server/share.
func isUNCPath(path string) bool {
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
}

// IsViolation unwraps a sandbox Violation from an error chain.
func IsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
