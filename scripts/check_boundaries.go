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

const modulePath = "ballotbox"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists what one layer of a context module may import. Module-local
// prefixes are relative to the module root; stdlib is always allowed.
type layerRule struct {
	local      []string
	shared     []string
	thirdParty bool
}

var layerRules = map[string]layerRule{
	"domain": {
		local: []string{"domain"},
	},
	"ports": {
		local:  []string{"domain", "ports"},
		shared: []string{"contracts"},
	},
	"application": {
		local:  []string{"application", "domain", "ports"},
		shared: []string{"contracts"},
	},
	"transport": {},
	"adapters": {
		local:      []string{"domain", "ports", "application", "transport"},
		shared:     []string{"contracts"},
		thirdParty: true,
	},
}

func main() {
	violations := collectContextViolations("contexts")
	violations = append(violations, collectPlatformViolations("internal/platform")...)
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

// collectContextViolations checks contexts/<context>/<module>/<layer>/... files.
// Files at the module root (module.go, doc.go) are the module's composition
// point and may import any of its layers.
func collectContextViolations(root string) []violation {
	var violations []violation
	walkGoFiles(root, func(path string, parts []string) {
		if len(parts) < 5 {
			return
		}
		modulePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		layer := parts[3]
		adapter := ""
		if layer == "adapters" {
			adapter = parts[4]
		}
		rule, known := layerRules[layer]

		forEachImport(path, &violations, func(importPath string, line int) {
			fail := func(reason string) {
				violations = append(violations, violation{
					File:   filepath.ToSlash(path),
					Line:   line,
					Import: importPath,
					Rule:   reason,
				})
			}
			switch {
			case isStdlib(importPath):
			case strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, modulePrefix):
				fail("cross-module imports are forbidden")
			case !known:
				fail("unknown layer " + layer)
			case hasPrefix(importPath, modulePrefix):
				if adapter != "" && hasPrefix(importPath, modulePrefix+"/adapters") &&
					!hasPrefix(importPath, modulePrefix+"/adapters/"+adapter) {
					fail("adapters must not import sibling adapters")
					return
				}
				if !isAllowed(strings.TrimPrefix(importPath, modulePrefix+"/"), rule.local) &&
					!(adapter != "" && hasPrefix(importPath, modulePrefix+"/adapters/"+adapter)) {
					fail(layer + " must not import " + strings.TrimPrefix(importPath, modulePrefix+"/"))
				}
			case strings.HasPrefix(importPath, modulePath+"/"):
				if !isAllowed(strings.TrimPrefix(importPath, modulePath+"/"), rule.shared) {
					fail(layer + " must not import runtime infrastructure")
				}
			case !rule.thirdParty:
				fail(layer + " must stay free of third-party packages")
			}
		})
	})
	return violations
}

// collectPlatformViolations keeps platform packages on the module surface:
// only the composition root reaches into a context's adapters.
func collectPlatformViolations(root string) []violation {
	var violations []violation
	walkGoFiles(root, func(path string, _ []string) {
		forEachImport(path, &violations, func(importPath string, line int) {
			if strings.HasPrefix(importPath, modulePath+"/contexts/") && strings.Contains(importPath, "/adapters/") {
				violations = append(violations, violation{
					File:   filepath.ToSlash(path),
					Line:   line,
					Import: importPath,
					Rule:   "platform code must use the module, not its adapters",
				})
			}
		})
	})
	return violations
}

func walkGoFiles(root string, visit func(path string, parts []string)) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		visit(path, strings.Split(filepath.ToSlash(path), "/"))
		return nil
	})
}

func forEachImport(path string, violations *[]violation, check func(importPath string, line int)) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		*violations = append(*violations, violation{
			File: filepath.ToSlash(path),
			Line: 1,
			Rule: "file must parse",
		})
		return
	}
	for _, imp := range file.Imports {
		check(strings.Trim(imp.Path.Value, "\""), fset.Position(imp.Pos()).Line)
	}
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
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
