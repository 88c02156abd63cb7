package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRejectsEscapes(t *testing.T) {
	s := New(t.TempDir())

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "plain relative path", path: "profile/foo-bar/info", wantErr: false},
		{name: "empty path", path: "", wantErr: true},
		{name: "absolute path", path: "/etc/passwd", wantErr: true},
		{name: "leading traversal", path: "../outside", wantErr: true},
		{name: "embedded traversal", path: "profile/../../outside", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Join(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	s := New(t.TempDir())

	doc := map[string]string{"keep": "me"}
	ok, err := s.ReadJSON("does/not/exist", &doc)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"keep": "me"}, doc, "missing file must leave the value untouched")
}

func TestWriteAndReadJSON(t *testing.T) {
	s := New(t.TempDir())

	in := map[string]any{"name": "Jane Doe", "networth": 1234.5}
	require.NoError(t, s.WriteJSON("profile/jane-doe/info", in))

	var out map[string]any
	ok, err := s.ReadJSON("profile/jane-doe/info", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", out["name"])
	assert.Equal(t, 1234.5, out["networth"])
}

func TestWriteJSONIsPrettyPrinted(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.WriteJSON("doc", map[string]string{"a": "b"}))
	data, err := os.ReadFile(filepath.Join(dir, "doc"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"a\": \"b\"")
}

func TestRowRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.AppendRow("profile/x/history", "2024-01-01", 12, 1500.25, 0, 0))
	require.NoError(t, s.AppendRow("profile/x/history", "2024-01-02", nil, 950.5, -549.75, -36.644))

	rows, err := s.ReadRows("profile/x/history")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2024-01-01", rows[0][0])
	assert.Equal(t, 12.0, rows[0][1])
	assert.Equal(t, 1500.25, rows[0][2])

	assert.Nil(t, rows[1][1], "empty field must read back as nil")
	assert.Equal(t, -549.75, rows[1][3])
}

func TestRowsUseCRLF(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.AppendRow("series", "2024-01-01", 1))
	data, err := os.ReadFile(filepath.Join(dir, "series"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 1\r\n", string(data))
}

func TestReadRowsMissingFile(t *testing.T) {
	s := New(t.TempDir())

	rows, err := s.ReadRows("nothing/here")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteRowsReplacesContent(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.AppendRow("series", "2024-01-01", 1))
	require.NoError(t, s.AppendRow("series", "2024-01-02", 2))
	require.NoError(t, s.WriteRows("series", [][]any{{"2024-01-02", 2.0}}))

	rows, err := s.ReadRows("series")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-02", rows[0][0])
}

func TestRenameMovesDirectory(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.WriteJSON("profile/old/info", map[string]string{"uri": "old"}))
	require.NoError(t, s.Rename("profile/old", "profile/new"))

	assert.False(t, s.Exists("profile/old"))
	assert.True(t, s.Exists("profile/new/info"))
}

func TestListSortsEntries(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.WriteJSON("stats/country/us", []string{}))
	require.NoError(t, s.WriteJSON("stats/country/de", []string{}))
	require.NoError(t, s.WriteJSON("stats/country/_index", map[string]string{}))

	names, err := s.List("stats/country")
	require.NoError(t, err)
	assert.Equal(t, []string{"_index", "de", "us"}, names)
}
