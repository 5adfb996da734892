package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	loader, err := NewLoader(t.TempDir())
	require.NoError(t, err)
	return loader
}

func writeCommand(t *testing.T, loader *Loader, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(loader.Dir(), name+".md"), []byte(content), 0644))
}

func TestLoadParsesSections(t *testing.T) {
	loader := newTestLoader(t)
	writeCommand(t, loader, "review", `# Code Review

Reviews a file for problems.

## Prompt Template

Review the following file: $ARGUMENTS
Point out bugs and style issues.

## Metadata

author: me
`)

	cmd, err := loader.Load("review")
	require.NoError(t, err)
	assert.Equal(t, "Code Review", cmd.Description)
	assert.Equal(t, "Review the following file: $ARGUMENTS\nPoint out bugs and style issues.", cmd.PromptTemplate)
	assert.Equal(t, "me", cmd.Metadata["author"])
}

func TestLoadWholeFileWithoutTemplateSection(t *testing.T) {
	loader := newTestLoader(t)
	writeCommand(t, loader, "plain", "Just do the thing: $ARGUMENTS\n")

	cmd, err := loader.Load("plain")
	require.NoError(t, err)
	assert.Equal(t, "Just do the thing: $ARGUMENTS\n", cmd.PromptTemplate)
	assert.Equal(t, "Just do the thing: $ARGUMENTS", cmd.Description)
}

func TestLoadMissingAndInvalidNames(t *testing.T) {
	loader := newTestLoader(t)

	_, err := loader.Load("nope")
	assert.Error(t, err)
	_, err = loader.Load("../escape")
	assert.Error(t, err)
	_, err = loader.Load("")
	assert.Error(t, err)
}

func TestExpandSubstitutesArguments(t *testing.T) {
	loader := newTestLoader(t)
	writeCommand(t, loader, "mix", `## Prompt Template

First $ARGUMENTS then ${ARGUMENTS}, costing \$5.
`)

	prompt, err := loader.Expand("mix", "input.txt")
	require.NoError(t, err)
	assert.Equal(t, "First input.txt then input.txt, costing $5.", prompt)
}

func TestListSorted(t *testing.T) {
	loader := newTestLoader(t)
	writeCommand(t, loader, "zeta", "z")
	writeCommand(t, loader, "alpha", "a")
	require.NoError(t, os.WriteFile(filepath.Join(loader.Dir(), "notes.txt"), []byte("skip"), 0644))

	cmds, err := loader.List()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "alpha", cmds[0].Name)
	assert.Equal(t, "zeta", cmds[1].Name)
}

func TestCreateTemplate(t *testing.T) {
	loader := newTestLoader(t)

	path, err := loader.CreateTemplate("summarize_diff", false)
	require.NoError(t, err)
	assert.FileExists(t, path)

	cmd, err := loader.Load("summarize_diff")
	require.NoError(t, err)
	assert.Equal(t, "Summarize Diff", cmd.Description)
	assert.Contains(t, cmd.PromptTemplate, "$ARGUMENTS")

	_, err = loader.CreateTemplate("summarize_diff", false)
	assert.Error(t, err, "existing command must not be replaced without overwrite")
	_, err = loader.CreateTemplate("summarize_diff", true)
	assert.NoError(t, err)
}

func TestParseInvocation(t *testing.T) {
	tests := []struct {
		input string
		name  string
		args  string
		ok    bool
	}{
		{"/review main.go", "review", "main.go", true},
		{"/review", "review", "", true},
		{"/review  spaced  args ", "review", "spaced  args", true},
		{"plain prompt", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := ParseInvocation(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.name, name, tt.input)
		assert.Equal(t, tt.args, args, tt.input)
	}
}
