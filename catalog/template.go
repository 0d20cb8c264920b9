package catalog

import (
	"archive/zip"
	"bytes"
)

// BuildExerciseTemplateZip returns a minimal two-string exercise
// package, in the same archive shape ParsePackage expects, for admins
// bootstrapping a new exercise from the admin UI.
func BuildExerciseTemplateZip() ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	files := []struct {
		name    string
		content string
	}{
		{
			name: "two-string/exercise.yaml",
			content: `slug: two-string
title: "Two String"

judge: default

limits:
  time_s: 2.0
  memory_mb: 256
`,
		},
		{
			name: "two-string/statement.md",
			content: "## Statement\nGiven two strings S and T, each on its own line, print their concatenation S+T on one line.\n\n## Constraints\n- 1 ≤ |S| ≤ 100\n- 1 ≤ |T| ≤ 100\n- S and T consist of printable ASCII characters\n\n## Input\n```\nS\nT\n```\n\n## Output\nThe concatenation of S and T on one line.\n",
		},
		{name: "two-string/data/sample/01.in", content: "Hello\nOJ\n"},
		{name: "two-string/data/sample/01.out", content: "HelloOJ\n"},
		{name: "two-string/data/secret/01.in", content: "abc\nxyz\n"},
		{name: "two-string/data/secret/01.out", content: "abcxyz\n"},
	}

	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
