package compiler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// Module loading: `yükle a.b` reads a/b.yap
// ---------------------------------------------------------------------------

// moduleKey is the lookup key of a module path, e.g. "araçlar.metin".
func moduleKey(path []string) string {
	return strings.Join(path, ".")
}

// findModule locates the source of a module path. The directory of the
// importing file is searched first, then the configured search paths.
func (c *compiler) findModule(path []string, from string) (string, bool) {
	rel := filepath.Join(path...) + SourceExt
	dirs := make([]string, 0, 1+len(c.opts.SearchPaths))
	if from != "" {
		dirs = append(dirs, filepath.Dir(from))
	} else {
		dirs = append(dirs, ".")
	}
	dirs = append(dirs, c.opts.SearchPaths...)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, rel)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warningf("module %s: %v", moduleKey(path), err)
		}
	}
	return "", false
}

// loadModules parses every module named by a `yükle` statement and hoists
// its function definitions. A module is loaded once per compilation; it is
// registered before its own loads are processed, so import cycles resolve.
func (c *compiler) loadModules(load *Load, from string) error {
	for _, path := range load.Paths {
		key := moduleKey(path)
		if _, ok := c.modules[key]; ok {
			continue
		}

		file, ok := c.findModule(path, from)
		if !ok {
			return errorIn(from, KindModuleNotFound, load.Pos(), "module not found: %s", key)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return errorIn(from, KindModuleNotFound, load.Pos(), "cannot read module %s: %v", key, err)
		}
		parsed, err := ParseSource(string(data), file)
		if err != nil {
			return err
		}

		mod := &moduleInfo{path: path, file: parsed, scope: newLexScope(nil)}
		c.modules[key] = mod
		log.Debugf("loading module %s from %s", key, file)

		if err := c.hoistModule(mod); err != nil {
			return err
		}
	}
	return nil
}

// hoistModule registers a module's functions. Only definitions and loads
// are meaningful at a module's top level; other statements are skipped.
func (c *compiler) hoistModule(mod *moduleInfo) error {
	for _, stmt := range mod.file.Body.Statements {
		switch n := stmt.(type) {
		case *FunctionDefinition:
			if err := c.hoistFunction(n, mod.scope, -1, mod.path, mod.file.Path); err != nil {
				return err
			}
		case *Load:
			if err := c.loadModules(n, mod.file.Path); err != nil {
				return err
			}
		default:
			pos := stmt.Pos()
			log.Warningf("%s:%d:%d: statement ignored at module level", displayPath(mod.file.Path), pos.Line, pos.Column)
		}
	}
	return nil
}
