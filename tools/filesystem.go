package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nanoagent/nanoagent/errors"
)

// ReadFileTool reads the entire content of a file.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the entire content of a file. Args: file_path (string)."
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["file_path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'file_path' argument")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	return string(content), nil
}

// WriteFileTool creates or replaces a file.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it entirely. Args: file_path (string), content (string)."
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["file_path"].(string)
	content, contentOk := args["content"].(string)
	if !pathOk || !contentOk {
		return "", errors.New("missing or invalid 'file_path' or 'content' arguments")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create parent directory for '%s'", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

// EditFileTool replaces an exact text match inside an existing file.
type EditFileTool struct{}

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Replaces the first occurrence of old_text with new_text in a file. " +
		"Args: file_path (string), old_text (string), new_text (string)."
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["file_path"].(string)
	oldText, oldOk := args["old_text"].(string)
	newText, newOk := args["new_text"].(string)
	if !pathOk || !oldOk || !newOk {
		return "", errors.New("missing or invalid 'file_path', 'old_text' or 'new_text' arguments")
	}
	if oldText == "" {
		return "", errors.New("'old_text' must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	content := string(data)
	if !strings.Contains(content, oldText) {
		return "", errors.New("old_text not found in '%s'", path)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}
	return fmt.Sprintf("Successfully edited %s", path), nil
}

// ListDirectoryTool lists directory entries.
type ListDirectoryTool struct{}

func (t *ListDirectoryTool) Name() string { return "list_directory" }
func (t *ListDirectoryTool) Description() string {
	return "Lists the entries of a directory. Args: directory_path (string, defaults to the working directory)."
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, _ := args["directory_path"].(string)
	if path == "" {
		path = "."
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list directory '%s'", path)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

// FileInfoTool reports size and timestamps for a path.
type FileInfoTool struct{}

func (t *FileInfoTool) Name() string { return "get_file_info" }
func (t *FileInfoTool) Description() string {
	return "Returns size, type and modification time for a path. Args: file_path (string)."
}

func (t *FileInfoTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["file_path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'file_path' argument")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to stat '%s'", path)
	}
	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	return fmt.Sprintf("%s: %s, %d bytes, modified %s",
		path, kind, info.Size(), info.ModTime().Format("2006-01-02 15:04:05")), nil
}
