package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "bayan.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProjectManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"demo\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, found, err := loadProjectManifest(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("manifest not found from nested directory")
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("package name = %q", m.Config.Package.Name)
	}
	if m.Config.Build.Src != "src" {
		t.Fatalf("default src = %q, want src", m.Config.Build.Src)
	}
	if got, want := m.unitsDir(), filepath.Join(root, "src"); got != want {
		t.Fatalf("unitsDir = %q, want %q", got, want)
	}
}

func TestLoadProjectManifestCustomSrc(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"demo\"\n\n[build]\nsrc = \"units\"\n")

	m, found, err := loadProjectManifest(root)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if got, want := m.unitsDir(), filepath.Join(root, "units"); got != want {
		t.Fatalf("unitsDir = %q, want %q", got, want)
	}
}

func TestLoadProjectManifestRejectsMissingPackage(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[build]\nsrc = \"units\"\n")

	_, found, err := loadProjectManifest(root)
	if !found {
		t.Fatal("manifest file exists, should be found")
	}
	if err == nil {
		t.Fatal("expected error for missing [package] section")
	}
}

func TestLoadProjectManifestAbsentIsNotAnError(t *testing.T) {
	// os.TempDir parents may contain stray manifests; use a throwaway
	// root that definitely has none above it inside the temp tree.
	root := filepath.Join(t.TempDir(), "empty")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	_, found, err := loadProjectManifest(root)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Skip("a bayan.toml exists above the temp directory")
	}
}
