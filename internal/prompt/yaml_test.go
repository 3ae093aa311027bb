package prompt

import (
	"testing"
	"testing/fstest"
)

func TestLoadSection(t *testing.T) {
	fsys := fstest.MapFS{
		"sample.yml": {Data: []byte("system: hello\nuser: hi\ncount: 3\nempty:\nblock: |\n  line one\n  line two\n")},
	}

	section, err := loadSection(fsys, "sample.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if section["system"] != "hello" {
		t.Fatalf("unexpected system: %s", section["system"])
	}
	if section["count"] != "3" {
		t.Fatalf("unexpected count: %s", section["count"])
	}
	if v, ok := section["empty"]; !ok || v != "" {
		t.Fatalf("expected empty value, got %q", v)
	}
	if section["block"] != "line one\nline two\n" {
		t.Fatalf("unexpected block: %q", section["block"])
	}
}

func TestLoadSectionRejects(t *testing.T) {
	cases := map[string]string{
		"templated system":          "system: \"hello {name}\"\n",
		"templated suffixed system": "free_system: \"hello {age}\"\nfree_user: \"age {age}\"\n",
		"nested value":              "system:\n  inner: x\n",
		"list value":                "hints: [a, b]\n",
		"broken yaml":               "system: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"bad.yml": {Data: []byte(data)}}
			if _, err := loadSection(fsys, "bad.yml"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadSections(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/a.yml":  {Data: []byte("system: alpha\n")},
		"prompts/b.yaml": {Data: []byte("system: beta\n")},
		"prompts/c.txt":  {Data: []byte("ignored")},
	}

	sections, err := loadSections(fsys, "prompts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections["a"]["system"] != "alpha" || sections["b"]["system"] != "beta" {
		t.Fatalf("unexpected section values: %v", sections)
	}
}
