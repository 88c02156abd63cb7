// Package store provides flat-file access to the content root: pretty-printed
// JSON documents and space-delimited CRLF row files. Missing files read back
// as empty values, writes are atomic (temp file + rename), and every path is
// joined beneath the configured root with traversal segments rejected.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	columnSeparator = " "
	rowSeparator    = "\r\n"
)

// Store is a handle on the content root. All paths passed to its methods are
// relative, slash-separated and must not escape the root.
type Store struct {
	root string
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the content root directory.
func (s *Store) Root() string {
	return s.root
}

// Join resolves a relative path beneath the root. Absolute paths, empty
// paths and paths containing ".." segments are rejected.
func (s *Store) Join(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("absolute path %q not allowed", path)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("path %q escapes content root", path)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

// Exists checks whether a file or directory exists at the given path.
func (s *Store) Exists(path string) bool {
	full, err := s.Join(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func (s *Store) IsDir(path string) bool {
	full, err := s.Join(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

// ReadJSON unmarshals the document at path into v. A missing file leaves v
// untouched and returns false without an error.
func (s *Store) ReadJSON(path string, v any) (bool, error) {
	full, err := s.Join(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// WriteJSON writes v pretty-printed to path, replacing any existing file.
// The write goes through a temp file in the same directory so readers never
// observe a partial document.
func (s *Store) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.writeAtomic(path, append(data, '\n'))
}

// ReadText returns the raw contents of a marker file, or "" when absent.
func (s *Store) ReadText(path string) (string, error) {
	full, err := s.Join(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteText writes a marker file.
func (s *Store) WriteText(path, value string) error {
	return s.writeAtomic(path, []byte(value))
}

// ReadRows parses a delimited row file. Each field is coerced to float64
// when parseable, kept as string otherwise; empty fields become nil. A
// missing file yields an empty slice.
func (s *Store) ReadRows(path string) ([][]any, error) {
	full, err := s.Join(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rows [][]any
	for _, line := range strings.Split(string(data), rowSeparator) {
		if line == "" {
			continue
		}
		fields := strings.Split(line, columnSeparator)
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i] = coerce(f)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow adds one line to a row file, creating the file if absent.
func (s *Store) AppendRow(path string, fields ...any) error {
	full, err := s.Join(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(formatRow(fields) + rowSeparator); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Sync()
}

// WriteRows replaces the full contents of a row file. Used by the corrective
// delete-day rewrite.
func (s *Store) WriteRows(path string, rows [][]any) error {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(formatRow(row))
		b.WriteString(rowSeparator)
	}
	return s.writeAtomic(path, []byte(b.String()))
}

// Remove deletes a single file. Missing files are not an error.
func (s *Store) Remove(path string) error {
	full, err := s.Join(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes a directory tree beneath the root.
func (s *Store) RemoveAll(path string) error {
	full, err := s.Join(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Rename moves a file or directory within the root.
func (s *Store) Rename(from, to string) error {
	src, err := s.Join(from)
	if err != nil {
		return err
	}
	dst, err := s.Join(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return nil
}

// List returns the sorted entry names of a directory, or nil when the
// directory does not exist.
func (s *Store) List(path string) ([]string, error) {
	full, err := s.Join(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	full, err := s.Join(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func formatRow(fields []any) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = formatField(f)
	}
	return strings.Join(parts, columnSeparator)
}

func formatField(f any) string {
	switch v := f.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case *int:
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerce(field string) any {
	if field == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return f
	}
	return field
}

// FloatField reads a row field as float64, tolerating nil.
func FloatField(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

// StringField reads a row field back as its original string form.
func StringField(v any) string {
	switch f := v.(type) {
	case nil:
		return ""
	case string:
		return f
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", f)
	}
}
