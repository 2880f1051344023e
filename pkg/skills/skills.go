// Package skills parses skill definition documents: YAML front-matter for
// metadata plus a markdown body whose "## Tools" sections declare the skill's
// remotely callable sub-tools.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Spec describes a skill as parsed from its definition document. It is
// immutable after parsing.
type Spec struct {
	Name        string
	Description string
	Version     string
	Tags        []string
	Homepage    string
	RequiresAPI []APIRequirement
	Tools       []Tool
	Body        string
	Path        string
}

// Tool is a sub-tool declared under a "## Tools" section.
type Tool struct {
	Name        string
	Description string
	Endpoint    string
	Parameters  []string
}

// APIRequirement declares an external API the skill depends on.
type APIRequirement struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Default  string `yaml:"default"`
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// LoadDir scans a directory for skill subdirectories containing SKILL.md.
func LoadDir(root string) ([]Spec, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Spec
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(root, entry.Name(), "SKILL.md")
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		skill, err := LoadFile(skillPath)
		if err != nil {
			return nil, err
		}
		out = append(out, skill)
	}
	return out, nil
}

// LoadFile parses a single SKILL.md file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	spec, err := Parse(string(data))
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	spec.Path = path
	return spec, nil
}

type frontmatter struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Version     string           `yaml:"version"`
	Tags        []string         `yaml:"tags"`
	Homepage    string           `yaml:"homepage"`
	RequiresAPI []APIRequirement `yaml:"requires_api"`
}

// Parse turns a skill definition document into a Spec. Missing name and
// description fall back to the document's first heading and first paragraph.
func Parse(doc string) (Spec, error) {
	fm, body, err := splitFrontmatter(doc)
	if err != nil {
		return Spec{}, err
	}
	var parsed frontmatter
	if fm != "" {
		if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
			return Spec{}, fmt.Errorf("parse frontmatter: %w", err)
		}
	}

	spec := Spec{
		Name:        strings.TrimSpace(parsed.Name),
		Description: strings.TrimSpace(parsed.Description),
		Version:     strings.TrimSpace(parsed.Version),
		Tags:        parsed.Tags,
		Homepage:    strings.TrimSpace(parsed.Homepage),
		RequiresAPI: parsed.RequiresAPI,
		Body:        body,
	}

	if spec.Name == "" {
		spec.Name = firstHeading(body)
	}
	if spec.Description == "" {
		spec.Description = firstParagraph(body)
	}
	spec.Tools = parseTools(body)

	if err := validate(spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// ToolNames returns the declared sub-tool names in document order.
func (s Spec) ToolNames() []string {
	names := make([]string, len(s.Tools))
	for i, tool := range s.Tools {
		names[i] = tool.Name
	}
	return names
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		// No front-matter; the whole document is body.
		return "", trimmed, nil
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("unterminated frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

// parseTools walks the body and collects one Tool per "###" sub-heading under
// any "## Tools" section. The first non-empty line after the sub-heading is
// its description; a line containing "endpoint:" sets the endpoint; a
// "parameters:" line lists comma-separated parameter names.
func parseTools(body string) []Tool {
	var (
		tools   []Tool
		inTools bool
		current *Tool
	)
	flush := func() {
		if current != nil {
			tools = append(tools, *current)
			current = nil
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "## "):
			flush()
			inTools = strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")), "Tools")
		case strings.HasPrefix(trimmed, "### "):
			flush()
			if inTools {
				current = &Tool{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "### "))}
			}
		case current != nil && trimmed != "":
			lower := strings.ToLower(trimmed)
			switch {
			case strings.Contains(lower, "endpoint:"):
				idx := strings.Index(lower, "endpoint:")
				current.Endpoint = strings.TrimSpace(trimmed[idx+len("endpoint:"):])
			case strings.HasPrefix(lower, "parameters:"):
				for _, p := range strings.Split(trimmed[len("parameters:"):], ",") {
					if p = strings.TrimSpace(p); p != "" {
						current.Parameters = append(current.Parameters, p)
					}
				}
			case current.Description == "":
				current.Description = strings.TrimPrefix(trimmed, "- ")
			}
		}
	}
	flush()
	return tools
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	return ""
}

func firstParagraph(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "---") {
			continue
		}
		return trimmed
	}
	return ""
}

func validate(spec Spec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	desc := strings.TrimSpace(spec.Description)
	if desc == "" {
		return errors.New("description is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}
