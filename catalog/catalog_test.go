package catalog

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildTestArchive(t *testing.T, exerciseYAML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	files := map[string]string{
		"two-sum/exercise.yaml":       exerciseYAML,
		"two-sum/statement.md":        "# Two Sum\n\nAdd two numbers.\n",
		"two-sum/data/sample/01.in":   "1 2\n",
		"two-sum/data/sample/01.out":  "3\n",
		"two-sum/data/secret/01.in":   "10 20\n",
		"two-sum/data/secret/01.out":  "30\n",
		"two-sum/data/secret/02.in":   "-5 5\n",
		"two-sum/data/secret/02.out":  "0\n",
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zw.Create(%q): %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
	return buf.Bytes()
}

const basicExerciseYAML = `
slug: two-sum
title: "Two Sum"
judge: default
limits:
  time_s: 1.5
  memory_mb: 128
`

func TestParsePackage_RoundTrip(t *testing.T) {
	data := buildTestArchive(t, basicExerciseYAML)

	pkg, err := ParsePackage(data)
	if err != nil {
		t.Fatalf("ParsePackage error: %v", err)
	}
	if pkg.Slug != "two-sum" {
		t.Errorf("Slug = %q, want two-sum", pkg.Slug)
	}
	if pkg.Title != "Two Sum" {
		t.Errorf("Title = %q, want \"Two Sum\"", pkg.Title)
	}
	if pkg.ComparatorName != "default" {
		t.Errorf("ComparatorName = %q, want default", pkg.ComparatorName)
	}
	if pkg.TimeLimitS != 1.5 || pkg.MemoryLimitMB != 128 {
		t.Errorf("limits = %v/%v, want 1.5/128", pkg.TimeLimitS, pkg.MemoryLimitMB)
	}
	if len(pkg.Testcases) != 3 {
		t.Fatalf("testcase count = %d, want 3 (1 sample + 2 secret)", len(pkg.Testcases))
	}
	if !pkg.Testcases[0].IsSample {
		t.Error("first testcase should be the sample case")
	}
	for _, tc := range pkg.Testcases[1:] {
		if tc.IsSample {
			t.Error("secret testcases must not be marked sample")
		}
	}

	spec, err := pkg.ToExerciseSpec()
	if err != nil {
		t.Fatalf("ToExerciseSpec error: %v", err)
	}
	if spec.Name != "two-sum" {
		t.Errorf("spec.Name = %q, want two-sum", spec.Name)
	}
	if len(spec.Testcases) != 3 {
		t.Fatalf("spec testcase count = %d, want 3", len(spec.Testcases))
	}
	if spec.Limits.MemoryBytes != 128*1024*1024 {
		t.Errorf("MemoryBytes = %d, want %d", spec.Limits.MemoryBytes, 128*1024*1024)
	}
	if spec.Comparator.String() != "default" {
		t.Errorf("spec comparator = %q, want default", spec.Comparator.String())
	}
}

func TestParsePackage_FloatJudgeDefaultsPrecision(t *testing.T) {
	data := buildTestArchive(t, `
slug: two-sum
title: "Two Sum"
judge: float
limits:
  time_s: 1.5
  memory_mb: 128
`)
	pkg, err := ParsePackage(data)
	if err != nil {
		t.Fatalf("ParsePackage error: %v", err)
	}
	if pkg.FloatPrecision <= 0 {
		t.Errorf("FloatPrecision = %d, want a positive default", pkg.FloatPrecision)
	}
}

func TestParsePackage_SlugMismatch(t *testing.T) {
	data := buildTestArchive(t, `
slug: wrong-slug
title: "Two Sum"
judge: default
limits:
  time_s: 1.5
  memory_mb: 128
`)
	if _, err := ParsePackage(data); err == nil {
		t.Fatal("expected an error when slug does not match the archive folder name")
	}
}

func TestParsePackage_UnknownJudge(t *testing.T) {
	data := buildTestArchive(t, `
slug: two-sum
title: "Two Sum"
judge: bogus
limits:
  time_s: 1.5
  memory_mb: 128
`)
	if _, err := ParsePackage(data); err == nil {
		t.Fatal("expected an error for an unrecognized judge name")
	}
}

func TestParsePackage_NotAZip(t *testing.T) {
	if _, err := ParsePackage([]byte("not a zip")); err == nil {
		t.Fatal("expected an error for non-zip input")
	}
}

func TestParsePackage_Empty(t *testing.T) {
	if _, err := ParsePackage(nil); err == nil {
		t.Fatal("expected an error for empty input")
	}
}
