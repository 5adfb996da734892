// Package persona loads agent personalities from markdown files with
// optional YAML frontmatter. A persona's body is appended to the base
// system prompt; frontmatter can restrict the tools it works with and tag
// it with keywords.
package persona

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
)

// DefaultName is the persona that leaves the base system prompt untouched.
const DefaultName = "default"

// Persona is one loaded personality.
type Persona struct {
	Name        string
	Path        string
	Description string
	// Content is the prompt extension, frontmatter and leading title
	// stripped.
	Content  string
	Keywords []string
	Tools    []string
	Metadata map[string]interface{}
}

// frontmatter holds the recognised YAML header fields. Keywords and tools
// accept either a comma-separated string or a list.
type frontmatter struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Keywords    interface{} `yaml:"keywords"`
	Tools       interface{} `yaml:"tools"`
}

var frontmatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n(.*)$`)

// Loader reads personas from a single directory.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Persona
}

// NewLoader creates the persona directory if needed and seeds it with the
// default persona on first use.
func NewLoader(dir string) (*Loader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create agents directory %s", dir)
	}
	l := &Loader{
		dir:   dir,
		cache: make(map[string]*Persona),
	}

	defaultPath := filepath.Join(dir, DefaultName+".md")
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		content := "# Default Agent\n\n" +
			"The base system prompt is used as-is, with no special\n" +
			"modifications or additional specialization.\n"
		if err := os.WriteFile(defaultPath, []byte(content), 0o644); err != nil {
			logger.Warn().Str("path", defaultPath).Err(err).Msg("could not seed default agent")
		}
	}
	return l, nil
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads a persona by name.
func (l *Loader) Load(name string) (*Persona, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(name)
}

func (l *Loader) load(name string) (*Persona, error) {
	if p, ok := l.cache[name]; ok {
		return p, nil
	}
	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return nil, errors.New("invalid agent name %q", name)
	}

	path := filepath.Join(l.dir, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "agent %q not found", name)
	}

	p := parsePersonaFile(name, path, string(data))
	l.cache[name] = p
	return p, nil
}

// parsePersonaFile splits optional YAML frontmatter from the prompt body.
// A malformed frontmatter block is ignored with a warning rather than
// failing the load.
func parsePersonaFile(name, path, content string) *Persona {
	p := &Persona{
		Name:     name,
		Path:     path,
		Metadata: make(map[string]interface{}),
	}

	body := content
	if m := frontmatterPattern.FindStringSubmatch(content); m != nil {
		body = m[2]

		var fm frontmatter
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("ignoring malformed agent frontmatter")
		} else {
			if fm.Name != "" {
				p.Name = fm.Name
			}
			p.Description = fm.Description
			p.Keywords = toList(fm.Keywords)
			p.Tools = toList(fm.Tools)
		}
		_ = yaml.Unmarshal([]byte(m[1]), &p.Metadata)
	}

	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "# ") {
		lines = lines[1:]
	}
	p.Content = strings.TrimSpace(strings.Join(lines, "\n"))

	if p.Description == "" {
		for _, line := range lines {
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "#") {
				p.Description = strings.TrimSpace(line)
				break
			}
		}
	}
	return p
}

// toList accepts a comma-separated string or a YAML sequence.
func toList(v interface{}) []string {
	var out []string
	switch value := v.(type) {
	case string:
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	case []interface{}:
		for _, item := range value {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// List returns all personas in the directory, sorted by name. Unreadable
// files are skipped with a warning.
func (l *Loader) List() ([]*Persona, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read agents directory")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var personas []*Persona
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		p, err := l.load(name)
		if err != nil {
			logger.Warn().Str("agent", name).Err(err).Msg("skipping unreadable agent file")
			continue
		}
		personas = append(personas, p)
	}

	sort.Slice(personas, func(i, j int) bool { return personas[i].Name < personas[j].Name })
	return personas, nil
}

// CreateTemplate writes a starter persona file and returns its path. An
// existing file is only replaced when overwrite is set.
func (l *Loader) CreateTemplate(name string, overwrite bool) (string, error) {
	path := filepath.Join(l.dir, name+".md")
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", errors.New("agent %q already exists, use --overwrite to replace it", name)
	}

	template := "---\n" +
		"name: " + name + "\n" +
		"description: Specialized agent for [describe purpose]\n" +
		"keywords: \n" +
		"tools: \n" +
		"---\n\n" +
		"# " + name + "\n\n" +
		"## Personality\n\n" +
		"Describe the agent's tone and communication style.\n\n" +
		"## Expertise\n\n" +
		"List the agent's areas of specialization.\n\n" +
		"## Response Style\n\n" +
		"Describe how the agent should structure responses.\n"

	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return "", errors.Wrapf(err, "could not write agent template")
	}

	l.mu.Lock()
	delete(l.cache, name)
	l.mu.Unlock()
	return path, nil
}

// ExtendSystemPrompt appends the persona's prompt extension to the base
// system prompt. The default persona (or none) leaves the base unchanged.
func ExtendSystemPrompt(base string, p *Persona) string {
	if p == nil || p.Name == DefaultName || p.Content == "" {
		return base
	}
	if base == "" {
		return p.Content
	}
	return base + "\n\n# Agent Personality Extension\n\n" + p.Content
}
