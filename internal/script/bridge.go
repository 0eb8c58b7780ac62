package script

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/livedoc/internal/engine/model"
)

// toGoValue converts a Lua value to an attribute value. Whole numbers
// become int64, tables become []any or map[string]any.
func toGoValue(lv lua.LValue) any {
	return toGoValueVisited(lv, make(map[*lua.LTable]bool))
}

func toGoValueVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	default:
		return nil
	}
}

// tableToGo converts a sequence to a slice and anything else to a map.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoValueVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = toGoValueVisited(v, visited)
	})
	return m
}

// toLuaValue converts an attribute value to a Lua value.
func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(toLuaValue(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLuaValue(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// attributesFromTable reads a string-keyed table as model attributes.
func attributesFromTable(t *lua.LTable) model.Attributes {
	if t == nil {
		return nil
	}
	attrs := make(model.Attributes)
	t.ForEach(func(k, v lua.LValue) {
		if key, ok := k.(lua.LString); ok {
			attrs[string(key)] = toGoValue(v)
		}
	})
	return attrs
}

func attributesToTable(L *lua.LState, attrs model.Attributes) *lua.LTable {
	t := L.NewTable()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.RawSetString(k, toLuaValue(L, attrs[k]))
	}
	return t
}

// pathFromTable reads a sequence of offsets. Paths are zero-based like
// model paths.
func pathFromTable(t *lua.LTable) ([]int, error) {
	n := t.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrBadArgument)
	}
	path := make([]int, n)
	for i := 1; i <= n; i++ {
		num, ok := t.RawGetInt(i).(lua.LNumber)
		if !ok || float64(num) != float64(int(num)) || num < 0 {
			return nil, fmt.Errorf("%w: path element %d is not an offset", ErrBadArgument, i)
		}
		path[i-1] = int(num)
	}
	return path, nil
}

func pathToTable(L *lua.LState, path []int) *lua.LTable {
	t := L.NewTable()
	for _, offset := range path {
		t.Append(lua.LNumber(offset))
	}
	return t
}

// positionToTable describes p as {root = name, path = {...}}.
func positionToTable(L *lua.LState, p model.Position) *lua.LTable {
	t := L.NewTable()
	if p.IsZero() {
		return t
	}
	t.RawSetString("root", lua.LString(p.Root().RootName()))
	t.RawSetString("path", pathToTable(L, p.Path()))
	return t
}

func rangeToTable(L *lua.LState, r model.Range) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("start", positionToTable(L, r.Start))
	t.RawSetString("end", positionToTable(L, r.End))
	return t
}

// optString reads a string field of an options table.
func optString(t *lua.LTable, key, def string) string {
	if t == nil {
		return def
	}
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return def
}

// optBool reads a boolean field of an options table.
func optBool(t *lua.LTable, key string) bool {
	if t == nil {
		return false
	}
	return lua.LVAsBool(t.RawGetString(key))
}
