// Package command derives the argv used to launch a submitted program
// from its filename extension.
package command

import "strings"

// interpreters maps a source extension to the interpreter argv prefix
// it runs under. An extension absent here is assumed to be a compiled,
// directly-executable binary.
var interpreters = map[string][]string{
	"py":  {"python3"},
	"pyc": {"python3"},
	"jar": {"java", "-jar"},
}

// Derive returns the argv to exec filename with, choosing an
// interpreter by extension or falling back to running filename
// directly from the current directory.
func Derive(filename string) []string {
	ext := extension(filename)
	if prefix, ok := interpreters[ext]; ok {
		argv := make([]string, 0, len(prefix)+1)
		argv = append(argv, prefix...)
		return append(argv, filename)
	}
	return []string{"./" + filename}
}

func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return filename[i+1:]
}
