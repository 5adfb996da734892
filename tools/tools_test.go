package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(nil)

	var names []string
	for _, tool := range r.All() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"edit_file", "get_file_info", "list_directory", "read_file", "write_file"}, names)

	_, ok := r.Get("read_file")
	assert.True(t, ok)
	_, ok = r.Get("rm_rf")
	assert.False(t, ok)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Execute(context.Background(), "bogus", nil)
	assert.Error(t, err)
}

func TestRegistryExecuteDeniedIsResultNotError(t *testing.T) {
	r := NewRegistry(&Permissions{BlockedTools: []string{"write_file"}})

	result, err := r.Execute(context.Background(), "write_file", map[string]interface{}{
		"file_path": filepath.Join(t.TempDir(), "x.txt"),
		"content":   "x",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Permission denied")
}

func TestRegistryWithPermissionsSharesTools(t *testing.T) {
	base := NewRegistry(nil)
	restricted := base.WithPermissions(&Permissions{ReadOnly: true})

	assert.Len(t, restricted.All(), len(base.All()))

	ok, _ := base.Check("write_file", nil)
	assert.True(t, ok)
	ok, _ = restricted.Check("write_file", nil)
	assert.False(t, ok)
}

func TestWriteAndReadFileTools(t *testing.T) {
	r := NewRegistry(nil)
	path := filepath.Join(t.TempDir(), "sub", "note.txt")

	out, err := r.Execute(context.Background(), "write_file", map[string]interface{}{
		"file_path": path,
		"content":   "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "5 bytes")

	content, err := r.Execute(context.Background(), "read_file", map[string]interface{}{
		"file_path": path,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestEditFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.go")
	require.NoError(t, os.WriteFile(path, []byte("foo bar foo"), 0644))

	tool := &EditFileTool{}
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"file_path": path,
		"old_text":  "foo",
		"new_text":  "baz",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "baz bar foo", string(data), "only the first occurrence is replaced")

	_, err = tool.Execute(context.Background(), map[string]interface{}{
		"file_path": path,
		"old_text":  "absent",
		"new_text":  "x",
	})
	assert.Error(t, err)
}

func TestListDirectoryTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0755))

	tool := &ListDirectoryTool{}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"directory_path": dir,
	})
	require.NoError(t, err)
	assert.Equal(t, "a/\nb.txt", out)
}

func TestFileInfoTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))

	tool := &FileInfoTool{}
	out, err := tool.Execute(context.Background(), map[string]interface{}{"file_path": path})
	require.NoError(t, err)
	assert.Contains(t, out, "file, 5 bytes")

	out, err = tool.Execute(context.Background(), map[string]interface{}{"file_path": dir})
	require.NoError(t, err)
	assert.Contains(t, out, "directory")
}
