package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// Layer rules for bounded-context modules under contexts/<context>/<module>/.
// Run from the repository root: go run ./scripts [root].
func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		start := indexOf(parts, "contexts")
		if start == -1 || len(parts)-start < 4 {
			return nil
		}

		contextName := parts[start+1]
		serviceName := parts[start+2]
		layer := parts[start+3]
		modulePrefix := fmt.Sprintf("sheepyard/contexts/%s/%s", contextName, serviceName)

		fileViolations := validateFile(path, normalized, layer, modulePrefix)
		violations = append(violations, fileViolations...)
		return nil
	})

	return violations
}

// layerRule lists the module-relative packages a layer may import on top of
// the standard library. Entries starting with "/" are relative to the module.
type layerRule struct {
	name    string
	allowed []string
}

var layerRules = map[string]layerRule{
	"domain":      {name: "domain", allowed: []string{"/domain"}},
	"application": {name: "application", allowed: []string{"/application", "/domain", "/ports", "sheepyard/contracts"}},
	"ports":       {name: "ports", allowed: []string{"/domain", "sheepyard/contracts"}},
	"transport":   {name: "transport", allowed: nil},
}

func validateFile(path string, normalizedPath string, layer string, modulePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	add := func(line int, importPath string, rule string) {
		violations = append(violations, violation{File: normalizedPath, Line: line, Import: importPath, Rule: rule})
	}
	rule, layered := layerRules[layer]
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line

		if strings.HasPrefix(importPath, "sheepyard/contexts/") && !hasPrefix(importPath, modulePrefix) {
			add(line, importPath, "cross-module imports are forbidden")
		}
		if !layered || isStdlib(importPath) {
			continue
		}
		switch {
		case strings.Contains(importPath, "/adapters/"):
			add(line, importPath, rule.name+" must not import adapters")
		case strings.HasPrefix(importPath, "sheepyard/internal/"):
			add(line, importPath, rule.name+" must not import runtime infrastructure")
		case !isAllowed(importPath, resolveAllowed(rule.allowed, modulePrefix)):
			add(line, importPath, rule.name+" import is outside explicit allowlist")
		}
	}
	return violations
}

func resolveAllowed(allowed []string, modulePrefix string) []string {
	out := make([]string, 0, len(allowed))
	for _, prefix := range allowed {
		if strings.HasPrefix(prefix, "/") {
			prefix = modulePrefix + prefix
		}
		out = append(out, prefix)
	}
	return out
}

func indexOf(parts []string, target string) int {
	for i, part := range parts {
		if part == target {
			return i
		}
	}
	return -1
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, "sheepyard/") {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
