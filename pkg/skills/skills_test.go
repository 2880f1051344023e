package skills

import (
	"os"
	"path/filepath"
	"testing"
)

const webSearchDoc = `---
name: web-search
description: Searches the web
version: 1.2.0
tags: [search, web]
homepage: https://example.com/web-search
requires_api:
  - name: SEARCH_API_KEY
    required: true
  - name: SEARCH_REGION
    required: false
    default: us-east
---

# Web Search

Searches the web for current information.

## Tools

### fetch
Fetches a URL and returns its content.
endpoint: /tools/fetch
parameters: url, timeout

### summarize
Summarizes fetched content.
endpoint: /tools/summarize
`

func TestParse(t *testing.T) {
	spec, err := Parse(webSearchDoc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Name != "web-search" {
		t.Errorf("unexpected name: %s", spec.Name)
	}
	if spec.Description != "Searches the web" {
		t.Errorf("unexpected description: %q", spec.Description)
	}
	if spec.Version != "1.2.0" {
		t.Errorf("unexpected version: %s", spec.Version)
	}
	if len(spec.RequiresAPI) != 2 {
		t.Fatalf("expected 2 API requirements, got %d", len(spec.RequiresAPI))
	}
	if !spec.RequiresAPI[0].Required || spec.RequiresAPI[0].Name != "SEARCH_API_KEY" {
		t.Errorf("unexpected first requirement: %+v", spec.RequiresAPI[0])
	}
	if spec.RequiresAPI[1].Default != "us-east" {
		t.Errorf("unexpected default: %q", spec.RequiresAPI[1].Default)
	}

	if len(spec.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(spec.Tools))
	}
	fetch := spec.Tools[0]
	if fetch.Name != "fetch" {
		t.Errorf("unexpected tool name: %s", fetch.Name)
	}
	if fetch.Description != "Fetches a URL and returns its content." {
		t.Errorf("unexpected tool description: %q", fetch.Description)
	}
	if fetch.Endpoint != "/tools/fetch" {
		t.Errorf("unexpected endpoint: %q", fetch.Endpoint)
	}
	if len(fetch.Parameters) != 2 || fetch.Parameters[0] != "url" {
		t.Errorf("unexpected parameters: %v", fetch.Parameters)
	}
}

func TestParseFallbacks(t *testing.T) {
	doc := `# data-cleaner

Normalizes messy tabular data.

## Tools

### normalize
Cleans up a data set.
endpoint: /tools/normalize
`
	spec, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Name != "data-cleaner" {
		t.Errorf("expected name from first heading, got %q", spec.Name)
	}
	if spec.Description != "Normalizes messy tabular data." {
		t.Errorf("expected description from first paragraph, got %q", spec.Description)
	}
}

func TestParseToolsOutsideToolsSection(t *testing.T) {
	doc := `---
name: web-search
description: Searches the web
---

## Usage

### not-a-tool
This heading is outside the Tools section.

## Tools

### fetch
Fetches a URL.
endpoint: /tools/fetch
`
	spec, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if names := spec.ToolNames(); len(names) != 1 || names[0] != "fetch" {
		t.Fatalf("expected only the Tools section to contribute tools, got %v", names)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty document", doc: ""},
		{name: "unterminated frontmatter", doc: "---\nname: x"},
		{name: "bad name pattern", doc: "---\nname: 'Bad Name!'\ndescription: d\n---\nbody"},
		{name: "missing description", doc: "---\nname: good-name\n---\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.doc); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "web-search")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(webSearchDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Directory without SKILL.md is skipped.
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	specs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(specs))
	}
	if specs[0].Name != "web-search" {
		t.Errorf("unexpected name: %s", specs[0].Name)
	}
}
