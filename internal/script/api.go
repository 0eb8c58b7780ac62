package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/livedoc/internal/engine/content"
	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
)

// docFunctions returns the functions of the doc module. Every one of them
// counts against the call limit.
func (s *State) docFunctions() map[string]lua.LGFunction {
	fns := map[string]lua.LGFunction{
		"data":             s.luaData,
		"set_data":         s.luaSetData,
		"version":          s.luaVersion,
		"roots":            s.luaRoots,
		"select":           s.luaSelect,
		"selection":        s.luaSelection,
		"type":             s.luaType,
		"insert":           s.luaInsert,
		"delete":           s.luaDelete,
		"modify":           s.luaModify,
		"set_attribute":    s.luaSetAttribute,
		"remove_attribute": s.luaRemoveAttribute,
		"split":            s.luaSplit,
		"rename":           s.luaRename,
		"add_marker":       s.luaAddMarker,
		"remove_marker":    s.luaRemoveMarker,
		"markers":          s.luaMarkers,
		"override_gravity": s.luaOverrideGravity,
		"restore_gravity":  s.luaRestoreGravity,
		"on_change":        s.luaOnChange,
		"history":          s.luaHistory,
		"has_content":      s.luaHasContent,
		"log":              s.luaLog,
		"uuid":             s.luaUUID,
	}
	for name, fn := range fns {
		fns[name] = s.counted(fn)
	}
	return fns
}

func (s *State) counted(fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		s.enter(L)
		return fn(L)
	}
}

// rootArg resolves the root named by opts.root, the main root by default.
func (s *State) rootArg(L *lua.LState, opts *lua.LTable) *model.Element {
	name := optString(opts, "root", model.MainRootName)
	root := s.model.Document().Root(name)
	if root == nil {
		s.fail(L, fmt.Errorf("%w: no root %q", ErrBadArgument, name))
	}
	return root
}

// positionArg reads the path table at index n as a position in root.
func (s *State) positionArg(L *lua.LState, n int, root *model.Element) model.Position {
	path, err := pathFromTable(L.CheckTable(n))
	if err != nil {
		s.fail(L, fmt.Errorf("argument %d: %w", n, err))
	}
	p, err := model.NewPosition(root, path)
	if err != nil {
		s.fail(L, err)
	}
	if !p.IsValid() {
		s.fail(L, fmt.Errorf("argument %d: %v: %w", n, path, model.ErrInvalidPath))
	}
	return p
}

func (s *State) change(L *lua.LState, fn func(w *model.Writer) error) {
	if err := s.model.Change(fn); err != nil {
		s.fail(L, err)
	}
}

// doc.data([opts]) returns the model string of a root. opts.selection =
// false leaves the selection out.
func (s *State) luaData(L *lua.LState) int {
	opts := L.OptTable(1, nil)
	var dataOpts []devutil.Option
	dataOpts = append(dataOpts, devutil.WithRoot(optString(opts, "root", model.MainRootName)))
	if opts != nil && opts.RawGetString("selection") == lua.LFalse {
		dataOpts = append(dataOpts, devutil.WithoutSelection())
	}
	L.Push(lua.LString(devutil.GetData(s.model, dataOpts...)))
	return 1
}

// doc.set_data(data, [opts]) replaces a root's content and the selection.
func (s *State) luaSetData(L *lua.LState) int {
	data := L.CheckString(1)
	opts := L.OptTable(2, nil)
	dataOpts := []devutil.Option{devutil.WithRoot(optString(opts, "root", model.MainRootName))}
	if optBool(opts, "backward") {
		dataOpts = append(dataOpts, devutil.WithBackward())
	}
	if err := devutil.SetData(s.model, data, dataOpts...); err != nil {
		return s.fail(L, err)
	}
	return 0
}

func (s *State) luaVersion(L *lua.LState) int {
	L.Push(lua.LNumber(s.model.Document().Version()))
	return 1
}

func (s *State) luaRoots(L *lua.LState) int {
	t := L.NewTable()
	for _, name := range s.model.Document().RootNames() {
		t.Append(lua.LString(name))
	}
	L.Push(t)
	return 1
}

// doc.select(start, [end], [opts]) sets the document selection to a
// position or a range. opts.backward makes the range backward.
func (s *State) luaSelect(L *lua.LState) int {
	var opts *lua.LTable
	hasEnd := L.GetTop() >= 2 && L.Get(2).Type() == lua.LTTable && L.CheckTable(2).Len() > 0
	if hasEnd {
		opts = L.OptTable(3, nil)
	} else {
		opts = L.OptTable(2, nil)
	}
	root := s.rootArg(L, opts)
	start := s.positionArg(L, 1, root)

	var target model.Selectable = start
	if hasEnd {
		target = model.NewRange(start, s.positionArg(L, 2, root))
	}
	var selOpts []model.SelectOption
	if optBool(opts, "backward") {
		selOpts = append(selOpts, model.AsBackward())
	}

	s.change(L, func(w *model.Writer) error {
		return w.SetSelection(target, selOpts...)
	})
	return 0
}

// doc.selection() describes the document selection.
func (s *State) luaSelection(L *lua.LState) int {
	sel := s.model.Document().Selection()
	t := L.NewTable()
	t.RawSetString("anchor", positionToTable(L, sel.Anchor()))
	t.RawSetString("focus", positionToTable(L, sel.Focus()))
	t.RawSetString("collapsed", lua.LBool(sel.IsCollapsed()))
	t.RawSetString("backward", lua.LBool(sel.IsBackward()))
	t.RawSetString("attributes", attributesToTable(L, sel.Attributes()))

	ranges := L.NewTable()
	for _, r := range sel.Ranges() {
		ranges.Append(rangeToTable(L, r))
	}
	t.RawSetString("ranges", ranges)

	markers := L.NewTable()
	for _, mk := range sel.Markers() {
		markers.Append(lua.LString(mk.Name()))
	}
	t.RawSetString("markers", markers)

	L.Push(t)
	return 1
}

// doc.type(text, [attrs]) types text at the selection, replacing selected
// content. Without attrs the selection attributes are used.
func (s *State) luaType(L *lua.LState) int {
	text := L.CheckString(1)
	attrs := attributesFromTable(L.OptTable(2, nil))
	if attrs == nil {
		attrs = s.model.Document().Selection().Attributes()
	}
	affected, err := content.InsertContent(s.model, model.NewText(text, attrs), nil)
	if err != nil {
		return s.fail(L, err)
	}
	L.Push(rangeToTable(L, affected))
	return 1
}

// doc.insert(data) inserts content given as a model string.
func (s *State) luaInsert(L *lua.LState) int {
	fragment, _, err := devutil.ParseRanges(L.CheckString(1))
	if err != nil {
		return s.fail(L, err)
	}
	affected, err := content.InsertContent(s.model, fragment, nil)
	if err != nil {
		return s.fail(L, err)
	}
	L.Push(rangeToTable(L, affected))
	return 1
}

// doc.delete([opts]) deletes the selected content.
func (s *State) luaDelete(L *lua.LState) int {
	opts := L.OptTable(1, nil)
	err := content.DeleteContent(s.model, s.model.Document().Selection(), content.DeleteOptions{
		LeaveUnmerged:           optBool(opts, "leave_unmerged"),
		DoNotResetEntireContent: optBool(opts, "do_not_reset_entire_content"),
		DoNotAutoparagraph:      optBool(opts, "do_not_autoparagraph"),
	})
	if err != nil {
		return s.fail(L, err)
	}
	return 0
}

// doc.modify([opts]) moves the selection focus by opts.unit in
// opts.direction ("forward" or "backward").
func (s *State) luaModify(L *lua.LState) int {
	opts := L.OptTable(1, nil)
	direction := model.Forward
	switch d := optString(opts, "direction", "forward"); d {
	case "forward":
	case "backward":
		direction = model.Backward
	default:
		return s.fail(L, fmt.Errorf("%w: direction %q", ErrBadArgument, d))
	}
	unit := content.Unit(optString(opts, "unit", string(s.unit)))
	switch unit {
	case content.UnitCharacter, content.UnitCodePoint, content.UnitWord:
	default:
		return s.fail(L, fmt.Errorf("%w: unit %q", ErrBadArgument, unit))
	}

	err := content.ModifySelection(s.model, s.model.Document().Selection(), content.ModifyOptions{
		Unit:           unit,
		Direction:      direction,
		WordBoundaries: optString(opts, "word_boundaries", s.wordBoundaries),
	})
	if err != nil {
		return s.fail(L, err)
	}
	return 0
}

// doc.set_attribute(key, value) applies an attribute to the selected items
// that allow it, or to the selection itself when it is collapsed.
func (s *State) luaSetAttribute(L *lua.LState) int {
	key := L.CheckString(1)
	value := toGoValue(L.CheckAny(2))
	if value == nil {
		return s.fail(L, fmt.Errorf("%w: nil value, use remove_attribute", ErrBadArgument))
	}
	s.applyAttribute(L, key, value)
	return 0
}

// doc.remove_attribute(key) is set_attribute's inverse.
func (s *State) luaRemoveAttribute(L *lua.LState) int {
	s.applyAttribute(L, L.CheckString(1), nil)
	return 0
}

func (s *State) applyAttribute(L *lua.LState, key string, value any) {
	sel := s.model.Document().Selection()
	s.change(L, func(w *model.Writer) error {
		if sel.IsCollapsed() {
			if value == nil {
				return w.RemoveSelectionAttribute(key)
			}
			return w.SetSelectionAttribute(key, value)
		}
		for _, r := range s.attributeRanges(sel.Ranges(), key) {
			if err := w.SetAttributeOnRange(key, value, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// attributeRanges narrows ranges to the items the schema lets carry key.
func (s *State) attributeRanges(ranges []model.Range, key string) []model.Range {
	schema := s.model.Schema()
	var out []model.Range
	for _, r := range ranges {
		for _, item := range r.Items(model.WalkerOptions{Boundaries: &r, IgnoreElementEnd: true}) {
			if schema.CheckAttribute(model.ContextOfItem(item), key) {
				out = append(out, model.RangeOn(item))
			}
		}
	}
	return out
}

// doc.split() splits the block at the collapsed selection and returns the
// new position.
func (s *State) luaSplit(L *lua.LState) int {
	sel := s.model.Document().Selection()
	if !sel.IsCollapsed() {
		return s.fail(L, fmt.Errorf("%w: split needs a collapsed selection", ErrBadArgument))
	}
	var result model.SplitResult
	s.change(L, func(w *model.Writer) error {
		var err error
		if result, err = w.Split(sel.Anchor(), nil); err != nil {
			return err
		}
		return w.SetSelection(result.Range.End)
	})
	L.Push(positionToTable(L, result.Position))
	return 1
}

// doc.rename(path, name, [opts]) renames the element after path.
func (s *State) luaRename(L *lua.LState) int {
	opts := L.OptTable(3, nil)
	p := s.positionArg(L, 1, s.rootArg(L, opts))
	name := L.CheckString(2)
	el, ok := p.NodeAfter().(*model.Element)
	if !ok {
		return s.fail(L, fmt.Errorf("rename at %s: %w", p, model.ErrNotElement))
	}
	s.change(L, func(w *model.Writer) error {
		return w.Rename(el, name)
	})
	return 0
}

// doc.add_marker(name, start, end, [opts]) adds a marker and returns its
// name. A nil name gets a generated one; opts.group prefixes it.
func (s *State) luaAddMarker(L *lua.LState) int {
	opts := L.OptTable(4, nil)
	name := L.OptString(1, "")
	if name == "" {
		name = uuid.NewString()
		if group := optString(opts, "group", ""); group != "" {
			name = group + ":" + name
		}
	}
	root := s.rootArg(L, opts)
	r := model.NewRange(s.positionArg(L, 2, root), s.positionArg(L, 3, root))
	s.change(L, func(w *model.Writer) error {
		_, err := w.AddMarker(name, r, optBool(opts, "affects_data"))
		return err
	})
	L.Push(lua.LString(name))
	return 1
}

func (s *State) luaRemoveMarker(L *lua.LState) int {
	name := L.CheckString(1)
	s.change(L, func(w *model.Writer) error {
		return w.RemoveMarker(name)
	})
	return 0
}

// doc.markers([group]) lists markers with their current ranges.
func (s *State) luaMarkers(L *lua.LState) int {
	markers := s.model.Markers().All()
	if group := L.OptString(1, ""); group != "" {
		markers = s.model.Markers().Group(group)
	}
	t := L.NewTable()
	for _, mk := range markers {
		entry := rangeToTable(L, mk.Range())
		entry.RawSetString("name", lua.LString(mk.Name()))
		t.Append(entry)
	}
	L.Push(t)
	return 1
}

func (s *State) luaOverrideGravity(L *lua.LState) int {
	var token string
	s.change(L, func(w *model.Writer) error {
		var err error
		token, err = w.OverrideSelectionGravity()
		return err
	})
	L.Push(lua.LString(token))
	return 1
}

func (s *State) luaRestoreGravity(L *lua.LState) int {
	token := L.CheckString(1)
	s.change(L, func(w *model.Writer) error {
		return w.RestoreSelectionGravity(token)
	})
	return 0
}

// doc.on_change(fn) calls fn(batch_id, document_operation_count) after every change
// block until the state is closed.
func (s *State) luaOnChange(L *lua.LState) int {
	fn := L.CheckFunction(1)
	sub := s.model.Document().OnChange(func(b *model.Batch) {
		err := s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
			lua.LString(b.ID()), lua.LNumber(len(b.DocumentOperations())))
		if err != nil {
			s.logger.Warn("script change listener failed", "batch", b.ID(), "error", err)
		}
	})
	s.subs = append(s.subs, sub)
	return 0
}

// doc.history([since]) lists {version, type} of the kept operations newer
// than since.
func (s *State) luaHistory(L *lua.LState) int {
	since := L.OptInt(1, 0)
	t := L.NewTable()
	for _, op := range s.model.Document().History().OperationsSince(since) {
		entry := L.NewTable()
		entry.RawSetString("version", lua.LNumber(op.BaseVersion()))
		entry.RawSetString("type", lua.LString(string(op.Type())))
		t.Append(entry)
	}
	L.Push(t)
	return 1
}

// doc.has_content([opts]) reports whether a root has meaningful content.
func (s *State) luaHasContent(L *lua.LState) int {
	opts := L.OptTable(1, nil)
	root := s.rootArg(L, opts)
	L.Push(lua.LBool(s.model.HasContentIn(root, model.HasContentOptions{
		IgnoreWhitespaces: optBool(opts, "ignore_whitespaces"),
		IgnoreMarkers:     optBool(opts, "ignore_markers"),
	})))
	return 1
}

// doc.log(level, message, [fields])
func (s *State) luaLog(L *lua.LState) int {
	var level slog.Level
	if err := level.UnmarshalText([]byte(L.CheckString(1))); err != nil {
		return s.fail(L, fmt.Errorf("%w: %v", ErrBadArgument, err))
	}
	msg := L.CheckString(2)
	var args []any
	if fields := L.OptTable(3, nil); fields != nil {
		fields.ForEach(func(k, v lua.LValue) {
			args = append(args, k.String(), toGoValue(v))
		})
	}
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Log(ctx, level, msg, args...)
	return 0
}

func (s *State) luaUUID(L *lua.LState) int {
	L.Push(lua.LString(uuid.NewString()))
	return 1
}
