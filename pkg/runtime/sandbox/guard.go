// Package sandbox compiles and executes user-authored source under a
// restricted symbol table and an import deny-list. Bounding the call by time
// and memory is left to the caller (package limiter).
package sandbox

import (
	"go/parser"
	"go/token"
	"strings"
)

// blockedTopLevelImports is the deny-list ImportGuard checks against. The
// decision is made on the top-level segment of the import path only: "os/exec"
// and "os/signal" are both blocked because they resolve to "os".
var blockedTopLevelImports = map[string]bool{
	"os":      true, // filesystem, process/signal control, env vars
	"net":     true, // sockets and every HTTP/FTP/SMTP client built on it
	"syscall": true, // raw OS facilities
	"unsafe":  true, // low-level FFI
	"plugin":  true, // dynamic loaders
	"runtime": true, // process/thread tuning (GOMAXPROCS, pprof, debug)
	"io":      true, // io/ioutil-style filesystem and temp-file helpers
}

// blockedExactImports are blocked by their full path rather than top-level
// segment, because their top-level segment ("encoding") is otherwise needed
// for encoding/json.
var blockedExactImports = map[string]bool{
	"encoding/gob": true, // binary deserialization, pickle-equivalent
}

// ImportGuard filters module loads performed by user code against a
// deny-list of dangerous top-level packages. A deny-list, rather than an
// allow-list, is the pragmatic choice here: an allow-list would have to name
// every numeric/tabular package a card or transform legitimately needs.
type ImportGuard struct{}

// NewImportGuard constructs the process-wide ImportGuard. There is exactly
// one instance; its tables are read-only and built once at service start.
func NewImportGuard() *ImportGuard {
	return &ImportGuard{}
}

// Allow reports whether moduleName may be imported by user code.
func (g *ImportGuard) Allow(moduleName string) bool {
	if blockedExactImports[moduleName] {
		return false
	}
	top := moduleName
	if idx := strings.IndexByte(moduleName, '/'); idx >= 0 {
		top = moduleName[:idx]
	}
	return !blockedTopLevelImports[top]
}

// ScanImports parses source and returns the first blocked import path found,
// or "" if every import is allowed. Parsing (rather than compiling) lets the
// ImportGuard reject a blocked import with a precise import_blocked error
// kind before ever handing the source to the interpreter — compiling first
// would only ever surface a generic, unclassified failure.
func (g *ImportGuard) ScanImports(source string) (blocked string, err error) {
	fset := token.NewFileSet()
	f, parseErr := parser.ParseFile(fset, "<user_code>", wrapForParse(source), parser.ImportsOnly)
	if parseErr != nil {
		return "", parseErr
	}
	for _, imp := range f.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if !g.Allow(path) {
			return path, nil
		}
	}
	return "", nil
}

// wrapForParse wraps a bare top-level-declarations source fragment (no
// package clause, as user code is submitted) in a "package main" clause so
// go/parser (and later, the interpreter) can parse it standalone. Using
// "main" rather than an arbitrary package name lets Sandbox look declared
// symbols up as "main.render" / "main.transform" afterward.
func wrapForParse(source string) string {
	trimmed := strings.TrimSpace(source)
	if strings.HasPrefix(trimmed, "package ") {
		return source
	}
	return "package main\n\n" + source
}

// NameGuard supplies the restricted intrinsic-name table handed to the
// interpreter in place of the host's full standard library.
type NameGuard struct {
	packages map[string]bool
}

// NewNameGuard builds the process-wide NameGuard. The package set below is
// the minimal-sufficient stdlib surface the card/transform contracts need:
// string/number formatting, sorting, JSON, time, and plain errors. Nothing
// that reaches the filesystem, network, or process is ever registered, so
// even a source that slips past ImportGuard's deny-list finds no dangerous
// symbol to resolve.
func NewNameGuard() *NameGuard {
	return &NameGuard{
		packages: map[string]bool{
			"strings":      true,
			"strconv":      true,
			"math":         true,
			"sort":         true,
			"time":         true,
			"encoding/json": true,
			"errors":       true,
			"fmt":          true,
		},
	}
}

// AllowedPackages returns the set of stdlib import paths the NameGuard
// registers symbols for. Used by Sandbox to build the interpreter's Use()
// table.
func (g *NameGuard) AllowedPackages() map[string]bool {
	out := make(map[string]bool, len(g.packages))
	for k, v := range g.packages {
		out[k] = v
	}
	return out
}
