package ioutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrOutsideRoot is returned by ConfinePath when a name would resolve
// outside its root directory.
var ErrOutsideRoot = errors.New("path escapes root directory")

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// WriteFile writes data to path, creating parent directories as needed.
//
// The data is written to a temporary file in the same directory and renamed
// into place, so a failed write never leaves a truncated file at path.
//
// Example:
//
//	playlistContent := []byte("#EXTM3U\n...")
//	err := WriteFile("/music/playlist.m3u", playlistContent)
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CreateFile creates (or truncates) path for writing, creating parent
// directories as needed.
func CreateFile(path string) (*os.File, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// This function ensures filenames are valid across different operating systems,
// particularly Windows which has the most restrictive naming rules.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")     // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")           // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// ConfinePath sanitizes name into a single path element and joins it to
// root. Names that sanitize to nothing, or to "." or "..", are rejected
// with ErrOutsideRoot.
//
// Example:
//
//	ConfinePath("/work", "../../etc/passwd") // "/work/.._.._etc_passwd"
//	ConfinePath("/work", "..")               // error
func ConfinePath(root, name string) (string, error) {
	clean := SanitizeFileName(name)
	if clean == "" || clean == "." || clean == ".." {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(absRoot, clean)

	rel, err := filepath.Rel(absRoot, path)
	if err != nil || rel != clean {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	return path, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
//
// Example:
//
//	err := EnsureDir("/music/Artist/Set")
//	// Creates /music, /music/Artist, and /music/Artist/Set if needed
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
