// Package catalog parses an exercise package (a zip archive of
// exercise.yaml, statement.md, and data/sample|secret testcases) into
// the in-memory Package representation the judge core consumes.
package catalog

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xtevenx/sjudge/judge"
)

const (
	maxArchiveEntries   = 200
	maxArchiveTotalSize = 32 * 1024 * 1024
	maxArchiveFileSize  = 4 * 1024 * 1024
)

// Testcase is one parsed sample or secret case, still in raw text form.
type Testcase struct {
	InputText  string
	OutputText string
	IsSample   bool
}

// Package is the parsed, validated contents of one exercise archive.
type Package struct {
	Slug           string
	Title          string
	StatementMD    string
	ComparatorName string
	FloatPrecision int
	TimeLimitS     float64
	MemoryLimitMB  int
	Testcases      []Testcase
}

// ToExerciseSpec converts a parsed Package into the judge core's
// immutable ExerciseSpec, resolving the comparator by name and
// converting limits to the core's units (seconds, bytes).
func (p Package) ToExerciseSpec() (judge.ExerciseSpec, error) {
	var cmp judge.Comparator
	var err error
	if p.ComparatorName == "float" {
		cmp = judge.Float(p.FloatPrecision)
	} else {
		cmp, err = judge.ParseComparator(p.ComparatorName)
		if err != nil {
			return judge.ExerciseSpec{}, err
		}
	}

	testcases := make([]judge.TestCase, len(p.Testcases))
	for i, tc := range p.Testcases {
		testcases[i] = judge.TestCase{
			Input:    splitLines(tc.InputText),
			Expected: splitLines(tc.OutputText),
		}
	}

	return judge.ExerciseSpec{
		Name:       p.Slug,
		Comparator: cmp,
		Limits: judge.Limits{
			TimeSeconds: p.TimeLimitS,
			MemoryBytes: int64(p.MemoryLimitMB) * 1024 * 1024,
		},
		Testcases: testcases,
	}, nil
}

func splitLines(s string) judge.IoBlock {
	trimmed := strings.Trim(s, "\n")
	if trimmed == "" {
		return judge.IoBlock{""}
	}
	lines := strings.Split(trimmed, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// ParsePackage validates and parses a zip archive into a Package.
// Expected layout (a single top-level folder whose name, normalized,
// equals the slug in exercise.yaml):
//
//	exercise.yaml (required)
//	statement.md (required)
//	data/sample/*.in, *.out (optional, is_sample=true)
//	data/secret/*.in, *.out (optional, is_sample=false)
func ParsePackage(data []byte) (Package, error) {
	if len(data) == 0 {
		return Package{}, errors.New("archive is empty")
	}
	if len(data) < 4 || !bytes.Equal(data[:4], []byte{'P', 'K', 0x03, 0x04}) {
		return Package{}, errors.New("only zip archives are supported")
	}

	files := map[string][]byte{}
	root, err := collectFromZip(data, files)
	if err != nil {
		return Package{}, err
	}
	if len(files) == 0 {
		return Package{}, errors.New("archive contains no usable files")
	}

	configBytes, ok := files["exercise.yaml"]
	if !ok {
		return Package{}, errors.New("exercise.yaml not found")
	}

	doc, err := parseExerciseYAML(configBytes)
	if err != nil {
		return Package{}, err
	}

	slug := normalizeSlug(doc.Slug)
	if slug == "" {
		return Package{}, errors.New("slug is required (lowercase letters, digits, hyphens only)")
	}
	if slug != normalizeSlug(root) {
		return Package{}, fmt.Errorf("top-level folder %q does not match slug %q", root, slug)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return Package{}, errors.New("title is required")
	}

	statement, ok := files["statement.md"]
	if !ok {
		return Package{}, errors.New("statement.md not found")
	}

	if doc.Limits.TimeS <= 0 {
		doc.Limits.TimeS = 2.0
	}
	if doc.Limits.MemoryMB <= 0 {
		doc.Limits.MemoryMB = 256
	}

	testcases, err := collectTestcases(files)
	if err != nil {
		return Package{}, err
	}

	return Package{
		Slug:           slug,
		Title:          strings.TrimSpace(doc.Title),
		StatementMD:    string(statement),
		ComparatorName: doc.Judge,
		FloatPrecision: doc.FloatPrecision,
		TimeLimitS:     doc.Limits.TimeS,
		MemoryLimitMB:  doc.Limits.MemoryMB,
		Testcases:      testcases,
	}, nil
}

type exerciseDoc struct {
	Slug           string `yaml:"slug"`
	Title          string `yaml:"title"`
	Judge          string `yaml:"judge"`
	FloatPrecision int    `yaml:"float_precision"`
	Limits         struct {
		TimeS    float64 `yaml:"time_s"`
		MemoryMB int     `yaml:"memory_mb"`
	} `yaml:"limits"`
}

func parseExerciseYAML(b []byte) (exerciseDoc, error) {
	var doc exerciseDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("exercise.yaml is malformed: %w", err)
	}
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Judge == "" {
		doc.Judge = "default"
	}
	doc.Judge = strings.ToLower(strings.TrimSpace(doc.Judge))
	switch doc.Judge {
	case "identical", "default", "float":
	default:
		return doc, fmt.Errorf("judge must be one of identical, default, float, got %q", doc.Judge)
	}
	if doc.Judge == "float" && doc.FloatPrecision <= 0 {
		doc.FloatPrecision = judge.DefaultFloatPrecision
	}
	return doc, nil
}

// collectTestcases buckets data/sample and data/secret .in/.out pairs
// by basename, requiring both halves to be present, and concatenates
// sample cases before secret cases, each bucket sorted by name.
func collectTestcases(files map[string][]byte) ([]Testcase, error) {
	type bucket struct {
		in, out  string
		hasIn    bool
		hasOut   bool
		isSample bool
	}
	buckets := map[string]*bucket{}

	assign := func(dir string, isSample bool) {
		prefix := "data/" + dir + "/"
		for name, content := range files {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			switch {
			case strings.HasSuffix(name, ".in"):
				key := dir + "/" + strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".in")
				b := buckets[key]
				if b == nil {
					b = &bucket{isSample: isSample}
					buckets[key] = b
				}
				b.in, b.hasIn = string(content), true
			case strings.HasSuffix(name, ".out"):
				key := dir + "/" + strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".out")
				b := buckets[key]
				if b == nil {
					b = &bucket{isSample: isSample}
					buckets[key] = b
				}
				b.out, b.hasOut = string(content), true
			}
		}
	}
	assign("sample", true)
	assign("secret", false)

	if len(buckets) == 0 {
		return nil, errors.New("no testcases found (data/sample or data/secret)")
	}

	var keys []string
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sortBucket := func(dirPrefix string) []string {
		var out []string
		for _, k := range keys {
			if strings.HasPrefix(k, dirPrefix) {
				out = append(out, k)
			}
		}
		return out
	}
	ordered := append(sortBucket("sample/"), sortBucket("secret/")...)

	tcs := make([]Testcase, 0, len(ordered))
	for _, key := range ordered {
		b := buckets[key]
		if !b.hasIn || !b.hasOut {
			return nil, fmt.Errorf("testcase %q is missing its .in or .out half", key)
		}
		tcs = append(tcs, Testcase{InputText: b.in, OutputText: b.out, IsSample: b.isSample})
	}
	return tcs, nil
}

func collectFromZip(data []byte, files map[string][]byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("cannot open zip: %w", err)
	}

	var total int64
	hasRootLevel := false
	dirRoots := map[string]struct{}{}
	type entry struct {
		name    string
		content []byte
	}
	var entries []entry

	for i, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if i+1 > maxArchiveEntries {
			return "", errors.New("too many entries (limit 200)")
		}
		norm := normalizeArchivePath(f.Name)
		if strings.HasPrefix(norm, "/") || strings.Contains(norm, "../") {
			return "", errors.New("archive contains an invalid path")
		}
		if f.UncompressedSize64 > maxArchiveFileSize {
			return "", fmt.Errorf("file %s is too large (limit %d bytes)", f.Name, maxArchiveFileSize)
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("cannot open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveFileSize))
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("cannot read %s: %w", f.Name, err)
		}
		if int64(len(content)) > maxArchiveFileSize {
			return "", fmt.Errorf("file %s is too large (limit %d bytes)", f.Name, maxArchiveFileSize)
		}
		total += int64(len(content))
		if total > maxArchiveTotalSize {
			return "", errors.New("uncompressed archive is too large (limit 32MB)")
		}
		entries = append(entries, entry{name: norm, content: content})
		parts := strings.Split(norm, "/")
		if len(parts) == 1 {
			hasRootLevel = true
		} else if parts[0] != "" {
			dirRoots[parts[0]] = struct{}{}
		}
	}
	if hasRootLevel {
		return "", errors.New("a single top-level folder is required (matching slug)")
	}
	if len(dirRoots) == 0 {
		return "", errors.New("no top-level folder found")
	}
	if len(dirRoots) > 1 {
		return "", errors.New("expected exactly one top-level folder")
	}
	var root string
	for k := range dirRoots {
		root = k
	}
	for _, e := range entries {
		name := strings.TrimPrefix(e.name, root+"/")
		if name == "" {
			continue
		}
		files[name] = e.content
	}
	return root, nil
}

func normalizeArchivePath(p string) string {
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")
	cleaned = strings.TrimPrefix(cleaned, "/")
	return cleaned
}

func normalizeSlug(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	var b strings.Builder
	lastHyphen := false
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if r == '-' || r == '_' || r == ' ' {
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
