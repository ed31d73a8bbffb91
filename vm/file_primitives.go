package vm

import (
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// dosya: file I/O
// ---------------------------------------------------------------------------

// fileModule is `dosya`. Reads of missing or unreadable files return Empty;
// failed writes are runtime errors.
type fileModule struct{}

func (fileModule) Name() string { return "dosya" }

func (fileModule) Methods() []Method {
	return []Method{
		{Name: "oku", Params: []string{"yol"}, Func: fileRead},
		{Name: "satırlar", Params: []string{"yol"}, Func: fileLines},
		{Name: "yaz", Params: []string{"yol", "içerik"}, Func: fileWrite},
		{Name: "ekle", Params: []string{"yol", "içerik"}, Func: fileAppend},
		{Name: "var_mı", Params: []string{"yol"}, Func: fileExists},
	}
}

func pathArg(ctx *CallContext, fn string, v Value) (string, error) {
	path, ok := textOf(v)
	if !ok || path == "" {
		return "", ctx.Errorf("%s: yol yazı olmalı, %s geldi", fn, v.Kind())
	}
	return path, nil
}

func fileRead(ctx *CallContext, _ Value, args []Value) (Value, error) {
	path, err := pathArg(ctx, "oku", args[0])
	if err != nil {
		return Empty, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("dosya::oku %s: %v", path, err)
		return Empty, nil
	}
	return NewText(string(content)), nil
}

// fileLines splits a file on newlines; a trailing newline does not add an
// empty last line.
func fileLines(ctx *CallContext, _ Value, args []Value) (Value, error) {
	path, err := pathArg(ctx, "satırlar", args[0])
	if err != nil {
		return Empty, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("dosya::satırlar %s: %v", path, err)
		return Empty, nil
	}
	text := strings.TrimSuffix(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	if text == "" {
		return NewList(nil), nil
	}
	lines := strings.Split(text, "\n")
	items := make([]Value, len(lines))
	for i, line := range lines {
		items[i] = NewText(line)
	}
	return NewList(items), nil
}

func fileWrite(ctx *CallContext, _ Value, args []Value) (Value, error) {
	path, err := pathArg(ctx, "yaz", args[0])
	if err != nil {
		return Empty, err
	}
	if err := os.WriteFile(path, []byte(args[1].String()), 0o644); err != nil {
		return Empty, ctx.Errorf("yaz: %v", err)
	}
	return Empty, nil
}

func fileAppend(ctx *CallContext, _ Value, args []Value) (Value, error) {
	path, err := pathArg(ctx, "ekle", args[0])
	if err != nil {
		return Empty, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Empty, ctx.Errorf("ekle: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(args[1].String()); err != nil {
		return Empty, ctx.Errorf("ekle: %v", err)
	}
	return Empty, nil
}

func fileExists(ctx *CallContext, _ Value, args []Value) (Value, error) {
	path, ok := textOf(args[0])
	if !ok || path == "" {
		return False, nil
	}
	_, err := os.Stat(path)
	return FromBool(err == nil), nil
}
