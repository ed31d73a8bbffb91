package vm

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// jsonModule converts between values and JSON text.
type jsonModule struct{}

func (jsonModule) Name() string { return "json" }

func (jsonModule) Methods() []Method {
	return []Method{
		{Name: "yazıya", Params: []string{"değer"}, Func: jsonEncode},
		{Name: "çöz", Params: []string{"yazı"}, Func: jsonDecode},
	}
}

func jsonEncode(ctx *CallContext, _ Value, args []Value) (Value, error) {
	doc, err := toJSON(args[0], nil)
	if err != nil {
		return Empty, ctx.Errorf("yazıya: %v", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return Empty, ctx.Errorf("yazıya: %v", err)
	}
	return NewText(string(data)), nil
}

func jsonDecode(ctx *CallContext, _ Value, args []Value) (Value, error) {
	s, ok := textOf(args[0])
	if !ok {
		return Empty, ctx.Errorf("çöz: yazı bekleniyordu, %s geldi", args[0].Kind())
	}
	var doc any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return Empty, ctx.Errorf("çöz: %v", err)
	}
	return fromJSON(doc), nil
}

// toJSON converts v to a document for the encoder. open holds the
// containers on the current path; JSON has no way to express a cycle.
func toJSON(v Value, open map[*Variant]bool) (any, error) {
	obj := Decode(v)
	if (obj.Kind == KindList || obj.Kind == KindDict) && open[obj] {
		return nil, fmt.Errorf("kendini içeren %s JSON'a çevrilemez", obj.Kind)
	}
	switch obj.Kind {
	case KindEmpty:
		return nil, nil
	case KindNumber:
		if obj.Num != obj.Num {
			return nil, fmt.Errorf("NaN JSON'a çevrilemez")
		}
		return obj.Num, nil
	case KindBool:
		return obj.Flag, nil
	case KindText:
		return obj.Text, nil
	case KindList:
		open = enter(open, obj)
		defer delete(open, obj)
		out := make([]any, len(obj.items))
		for i, item := range obj.items {
			e, err := toJSON(item, open)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case KindDict:
		open = enter(open, obj)
		defer delete(open, obj)
		out := make(map[string]any, len(obj.entries))
		for k, item := range obj.entries {
			e, err := toJSON(item, open)
			if err != nil {
				return nil, err
			}
			out[k] = e
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s JSON'a çevrilemez", obj.Kind)
}

func fromJSON(doc any) Value {
	switch d := doc.(type) {
	case nil:
		return Empty
	case float64:
		return FromNumber(d)
	case bool:
		return FromBool(d)
	case string:
		return NewText(d)
	case []any:
		items := make([]Value, len(d))
		for i, e := range d {
			items[i] = fromJSON(e)
		}
		return NewList(items)
	case map[string]any:
		entries := make(map[string]Value, len(d))
		for k, e := range d {
			entries[k] = fromJSON(e)
		}
		return NewDict(entries)
	}
	return Empty
}
