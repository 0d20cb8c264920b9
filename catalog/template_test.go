package catalog

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestBuildExerciseTemplateZip(t *testing.T) {
	data, err := BuildExerciseTemplateZip()
	if err != nil {
		t.Fatalf("BuildExerciseTemplateZip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}

	want := []string{
		"two-string/exercise.yaml",
		"two-string/statement.md",
		"two-string/data/sample/01.in",
		"two-string/data/sample/01.out",
		"two-string/data/secret/01.in",
		"two-string/data/secret/01.out",
	}
	got := make(map[string]bool)
	for _, f := range zr.File {
		got[f.Name] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("template zip missing entry %q", name)
		}
	}
	if len(got) != len(want) {
		t.Errorf("template zip has %d entries, want %d", len(got), len(want))
	}

	pkg, err := ParsePackage(data)
	if err != nil {
		t.Fatalf("ParsePackage(template) = %v, want valid package", err)
	}
	if pkg.Slug != "two-string" {
		t.Errorf("pkg.Slug = %q, want two-string", pkg.Slug)
	}
	if len(pkg.Testcases) != 2 {
		t.Errorf("len(pkg.Testcases) = %d, want 2", len(pkg.Testcases))
	}
}
