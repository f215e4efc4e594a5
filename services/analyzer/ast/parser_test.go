package ast

import (
	"testing"
)

func TestParserRegistry_RegisterAndLookup(t *testing.T) {
	registry := NewParserRegistry()
	parser := NewPythonParser()

	registry.Register(parser)

	got, ok := registry.GetByLanguage("python")
	if !ok {
		t.Fatal("expected python parser to be registered")
	}
	if got != parser {
		t.Error("expected same parser instance back")
	}

	for _, ext := range []string{".py", ".pyi"} {
		if _, ok := registry.GetByExtension(ext); !ok {
			t.Errorf("expected parser for extension %q", ext)
		}
	}
}

func TestParserRegistry_UnknownLookups(t *testing.T) {
	registry := NewParserRegistry()

	if _, ok := registry.GetByLanguage("cobol"); ok {
		t.Error("expected no parser for unknown language")
	}

	if _, ok := registry.GetByExtension(".cob"); ok {
		t.Error("expected no parser for unknown extension")
	}
}

func TestParserRegistry_RegisterNil(t *testing.T) {
	registry := NewParserRegistry()
	registry.Register(nil) // must not panic

	if langs := registry.Languages(); len(langs) != 0 {
		t.Errorf("expected empty registry, got %v", langs)
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	for _, lang := range []string{"python", "go"} {
		if _, ok := registry.GetByLanguage(lang); !ok {
			t.Errorf("expected default registry to include %q", lang)
		}
	}

	for _, ext := range []string{".py", ".pyi", ".go"} {
		if _, ok := registry.GetByExtension(ext); !ok {
			t.Errorf("expected default registry to handle %q", ext)
		}
	}
}

func TestParserRegistry_Extensions(t *testing.T) {
	registry := DefaultRegistry()
	exts := registry.Extensions()

	seen := map[string]bool{}
	for _, ext := range exts {
		if seen[ext] {
			t.Errorf("duplicate extension %q", ext)
		}
		seen[ext] = true
	}

	if !seen[".py"] || !seen[".go"] {
		t.Errorf("expected .py and .go in %v", exts)
	}
}
