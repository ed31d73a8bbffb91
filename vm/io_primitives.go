package vm

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ioModule is `gç`, the console module.
type ioModule struct{}

func (ioModule) Name() string { return "gç" }

func (ioModule) Methods() []Method {
	return []Method{
		{Name: "yaz", Func: ioWrite},
		{Name: "satıryaz", Func: ioWriteLine},
		{Name: "satıroku", Params: []string{}, Func: ioReadLine},
	}
}

func joinDisplay(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func ioWrite(ctx *CallContext, _ Value, args []Value) (Value, error) {
	if _, err := io.WriteString(ctx.Stdout, joinDisplay(args)); err != nil {
		return Empty, ctx.Errorf("yaz: %v", err)
	}
	return Empty, nil
}

func ioWriteLine(ctx *CallContext, _ Value, args []Value) (Value, error) {
	if _, err := fmt.Fprintln(ctx.Stdout, joinDisplay(args)); err != nil {
		return Empty, ctx.Errorf("satıryaz: %v", err)
	}
	return Empty, nil
}

// ioReadLine blocks until a full line is available. At end of input with
// nothing read it returns Empty.
func ioReadLine(ctx *CallContext, _ Value, _ []Value) (Value, error) {
	if ctx.Stdin == nil {
		return Empty, nil
	}
	line, err := ctx.Stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Empty, ctx.Errorf("satıroku: %v", err)
	}
	if err != nil && line == "" {
		return Empty, nil
	}
	return NewText(strings.TrimRight(line, "\r\n")), nil
}
