// Command sqllint checks that every SQL string constant starts with a
// "--sql <uuid>" marker and that no marker is reused. SQLRunner refuses
// statements without one.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlPattern    = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create|alter|drop)\b`)
	markerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type statement struct {
	file   string
	name   string
	line   int
	marker string
}

type violation struct {
	statement
	message string
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"internal/sqlinline"}
	}

	var stmts []statement
	for _, target := range targets {
		found, err := collect(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
		stmts = append(stmts, found...)
	}

	violations := check(stmts)
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "%s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
		}
		os.Exit(1)
	}
	fmt.Printf("sqllint: %d statements ok\n", len(stmts))
}

func collect(target string) ([]statement, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return lintFile(target, nil)
	}
	var out []statement
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		found, err := lintFile(path, nil)
		out = append(out, found...)
		return err
	})
	return out, err
}

// lintFile returns every string constant in src (or the file at path when
// src is nil) that looks like SQL.
func lintFile(path string, src any) ([]statement, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, 0)
	if err != nil {
		return nil, err
	}
	var out []statement
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := strconv.Unquote(bl.Value)
			if err != nil || !sqlPattern.MatchString(raw) {
				continue
			}
			name := ""
			if i < len(vs.Names) {
				name = vs.Names[i].Name
			}
			out = append(out, statement{
				file:   path,
				name:   name,
				line:   fset.Position(bl.Pos()).Line,
				marker: firstLine(raw),
			})
		}
		return true
	})
	return out, nil
}

func check(stmts []statement) []violation {
	var out []violation
	byMarker := make(map[string]statement, len(stmts))
	for _, s := range stmts {
		if !markerPattern.MatchString(s.marker) {
			out = append(out, violation{statement: s, message: "missing or invalid --sql <uuid> marker"})
			continue
		}
		if prev, dup := byMarker[s.marker]; dup {
			out = append(out, violation{statement: s, message: fmt.Sprintf("marker already used by %s", prev.name)})
			continue
		}
		byMarker[s.marker] = s
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].file != out[j].file {
			return out[i].file < out[j].file
		}
		return out[i].line < out[j].line
	})
	return out
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
