// Package commands loads user-defined prompt templates, one markdown
// file per command, and expands "/name arguments" invocations into full
// prompts before they reach the model.
package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
)

// Command is one loaded prompt template.
type Command struct {
	Name           string
	Path           string
	Description    string
	PromptTemplate string
	Metadata       map[string]string
}

// Loader reads command files from a single directory and caches parsed
// commands by name.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Command
}

// NewLoader creates the command directory if needed.
func NewLoader(dir string) (*Loader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create commands directory %s", dir)
	}
	return &Loader{
		dir:   dir,
		cache: make(map[string]*Command),
	}, nil
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads a command by name. Returns an error when no file exists for
// the name.
func (l *Loader) Load(name string) (*Command, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(name)
}

func (l *Loader) load(name string) (*Command, error) {
	if cmd, ok := l.cache[name]; ok {
		return cmd, nil
	}

	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return nil, errors.New("invalid command name %q", name)
	}
	path := filepath.Join(l.dir, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "command %q not found", name)
	}

	cmd := parseCommandFile(name, path, string(data))
	l.cache[name] = cmd
	return cmd, nil
}

// parseCommandFile extracts the description, prompt template and metadata
// from a command markdown file. The first heading (or first plain
// paragraph) becomes the description; a "## Prompt Template" section holds
// the template and a "## Metadata" or "## Variables" section holds
// key: value pairs. Without a template section the whole file is the
// template.
func parseCommandFile(name, path, content string) *Command {
	cmd := &Command{
		Name:     name,
		Path:     path,
		Metadata: make(map[string]string),
	}

	var template []string
	inPrompt := false
	inMetadata := false

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if strings.HasPrefix(line, "# ") && cmd.Description == "" {
			cmd.Description = strings.TrimSpace(line[2:])
			continue
		}
		if strings.HasPrefix(line, "## ") {
			section := strings.ToLower(strings.TrimSpace(line[3:]))
			inPrompt = strings.Contains(section, "prompt") || strings.Contains(section, "template")
			inMetadata = strings.Contains(section, "metadata") || strings.Contains(section, "variables")
			continue
		}

		switch {
		case inPrompt && strings.TrimSpace(line) != "":
			template = append(template, line)
		case inMetadata && strings.Contains(line, ":"):
			key, value, _ := strings.Cut(line, ":")
			cmd.Metadata[strings.TrimSpace(key)] = strings.TrimSpace(value)
		case cmd.Description == "" && strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "#"):
			cmd.Description = strings.TrimSpace(line)
		}
	}

	cmd.PromptTemplate = strings.Join(template, "\n")
	if cmd.PromptTemplate == "" {
		cmd.PromptTemplate = content
	}
	if cmd.Description == "" {
		cmd.Description = "Command: " + name
	}
	return cmd
}

// List returns all commands in the directory, sorted by name. Unreadable
// files are skipped with a warning.
func (l *Loader) List() ([]*Command, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read commands directory")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var cmds []*Command
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		cmd, err := l.load(name)
		if err != nil {
			logger.Warn().Str("command", name).Err(err).Msg("skipping unreadable command file")
			continue
		}
		cmds = append(cmds, cmd)
	}

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds, nil
}

// Expand loads the named command and substitutes the invocation arguments
// into its template. Both $ARGUMENTS and ${ARGUMENTS} are replaced; an
// escaped \$ becomes a literal dollar sign.
func (l *Loader) Expand(name, arguments string) (string, error) {
	cmd, err := l.Load(name)
	if err != nil {
		return "", err
	}

	prompt := strings.ReplaceAll(cmd.PromptTemplate, "${ARGUMENTS}", arguments)
	prompt = strings.ReplaceAll(prompt, "$ARGUMENTS", arguments)
	prompt = strings.ReplaceAll(prompt, `\$`, "$")
	return strings.TrimSpace(prompt), nil
}

// CreateTemplate writes a starter command file and returns its path. An
// existing file is only replaced when overwrite is set.
func (l *Loader) CreateTemplate(name string, overwrite bool) (string, error) {
	path := filepath.Join(l.dir, name+".md")
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", errors.New("command %q already exists, use --overwrite to replace it", name)
	}

	template := "# " + titleWords(name) + "\n\n" +
		"Brief description of what this command does.\n\n" +
		"## Prompt Template\n\n" +
		"Perform the following task: $ARGUMENTS\n\n" +
		"Please be thorough and provide detailed output.\n\n" +
		"## Usage\n\n" +
		"```bash\nnanoagent run \"/" + name + " your arguments here\"\n```\n"

	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return "", errors.Wrapf(err, "could not write command template")
	}

	l.mu.Lock()
	delete(l.cache, name)
	l.mu.Unlock()
	return path, nil
}

func titleWords(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseInvocation splits a "/name arguments" input. ok is false when the
// input does not use command syntax.
func ParseInvocation(input string) (name, arguments string, ok bool) {
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	rest := strings.TrimPrefix(input, "/")
	name, arguments, _ = strings.Cut(rest, " ")
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(arguments), true
}
