package schema

import (
	"fmt"
	"maps"
	"strings"

	"github.com/dshills/livedoc/internal/engine/model"
)

// ChildCheck overrides the result of CheckChild. It returns decided=false to
// leave the decision to the definitions.
type ChildCheck func(ctx model.SchemaContext, childName string) (allowed, decided bool)

// AttributeCheck overrides the result of CheckAttribute.
type AttributeCheck func(ctx model.SchemaContext, key string) (allowed, decided bool)

// Schema is a registry of item definitions. It implements model.Schema.
//
// Definitions are compiled lazily on the first query after a change.
// A Schema is not safe for concurrent use.
type Schema struct {
	definitions map[string][]ItemDefinition
	order       []string
	compiled    map[string]*Definition

	attributeProperties map[string]map[string]any
	childChecks         []ChildCheck
	attributeChecks     []AttributeCheck
}

var _ model.Schema = (*Schema)(nil)

// New creates a schema with the generic items registered.
func New() *Schema {
	s := &Schema{
		definitions:         make(map[string][]ItemDefinition),
		attributeProperties: make(map[string]map[string]any),
	}
	for _, item := range genericItems() {
		_ = s.Register(item.name, item.def)
	}
	s.AddChildCheck(func(_ model.SchemaContext, childName string) (bool, bool) {
		if childName == MarkerName {
			return true, true
		}
		return false, false
	})
	return s
}

// Register adds a new item.
func (s *Schema) Register(name string, def ItemDefinition) error {
	if _, ok := s.definitions[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrItemExists)
	}
	s.definitions[name] = []ItemDefinition{def}
	s.order = append(s.order, name)
	s.compiled = nil
	return nil
}

// Extend adds rules to a registered item.
func (s *Schema) Extend(name string, def ItemDefinition) error {
	if _, ok := s.definitions[name]; !ok {
		return fmt.Errorf("extend %q: %w", name, ErrItemNotFound)
	}
	s.definitions[name] = append(s.definitions[name], def)
	s.compiled = nil
	return nil
}

// IsRegistered reports whether an item named name exists.
func (s *Schema) IsRegistered(name string) bool {
	_, ok := s.definitions[name]
	return ok
}

// Definition returns the compiled definition of an item.
func (s *Schema) Definition(name string) (Definition, bool) {
	def := s.definition(name)
	if def == nil {
		return Definition{}, false
	}
	return *def, true
}

// Definitions returns all compiled definitions in registration order.
func (s *Schema) Definitions() []Definition {
	s.ensureCompiled()
	out := make([]Definition, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.compiled[name])
	}
	return out
}

// SetAttributeProperties merges props into the properties of an attribute.
func (s *Schema) SetAttributeProperties(key string, props map[string]any) {
	cur, ok := s.attributeProperties[key]
	if !ok {
		cur = make(map[string]any, len(props))
		s.attributeProperties[key] = cur
	}
	maps.Copy(cur, props)
}

// AttributeProperties returns the properties declared for an attribute.
func (s *Schema) AttributeProperties(key string) map[string]any {
	return maps.Clone(s.attributeProperties[key])
}

// AddChildCheck registers a callback consulted before the definitions.
// Checks added later run first.
func (s *Schema) AddChildCheck(check ChildCheck) {
	s.childChecks = append(s.childChecks, check)
}

// AddAttributeCheck registers a callback consulted before the definitions.
// Checks added later run first.
func (s *Schema) AddAttributeCheck(check AttributeCheck) {
	s.attributeChecks = append(s.attributeChecks, check)
}

func (s *Schema) ensureCompiled() {
	if s.compiled == nil {
		s.compile()
	}
}

func (s *Schema) definition(name string) *Definition {
	s.ensureCompiled()
	return s.compiled[name]
}

func (s *Schema) itemDefinition(item model.Item) *Definition {
	if item == nil {
		return nil
	}
	return s.definition(model.ItemName(item))
}

// CheckChild reports whether node may be the last child of ctx.
func (s *Schema) CheckChild(ctx model.SchemaContext, node model.Item) bool {
	return s.CheckChildName(ctx, model.ItemName(node))
}

// CheckChildName reports whether an item named name may be placed in ctx.
func (s *Schema) CheckChildName(ctx model.SchemaContext, name string) bool {
	for i := len(s.childChecks) - 1; i >= 0; i-- {
		if allowed, decided := s.childChecks[i](ctx, name); decided {
			return allowed
		}
	}
	def := s.definition(name)
	if def == nil || len(ctx) == 0 {
		return false
	}
	return s.matchContext(def, ctx, len(ctx)-1)
}

// matchContext checks that every context item is allowed in the one above it.
func (s *Schema) matchContext(def *Definition, ctx model.SchemaContext, i int) bool {
	name := ctx[i].Name
	if !def.allowedIn(name) {
		return false
	}
	if i == 0 {
		return true
	}
	parent := s.definition(name)
	if parent == nil {
		return false
	}
	return s.matchContext(parent, ctx, i-1)
}

// CheckAttribute reports whether the last item of ctx may carry key.
func (s *Schema) CheckAttribute(ctx model.SchemaContext, key string) bool {
	for i := len(s.attributeChecks) - 1; i >= 0; i-- {
		if allowed, decided := s.attributeChecks[i](ctx, key); decided {
			return allowed
		}
	}
	if len(ctx) == 0 {
		return false
	}
	def := s.definition(ctx.Last().Name)
	return def != nil && def.allowsAttribute(key)
}

// CheckMerge reports whether right can be merged into left. Limit elements
// are never merged, and every child of right must be allowed in left.
func (s *Schema) CheckMerge(left, right *model.Element) bool {
	if left == nil || right == nil || s.IsLimit(left) || s.IsLimit(right) {
		return false
	}
	ctx := model.ContextOfItem(left)
	for _, child := range right.Children() {
		if !s.CheckChild(ctx, child) {
			return false
		}
	}
	return true
}

// IsObject reports whether item is a self-contained object.
func (s *Schema) IsObject(item model.Item) bool {
	def := s.itemDefinition(item)
	return def != nil && def.IsObject
}

// IsLimit reports whether item bounds selection and merging. Objects are limits.
func (s *Schema) IsLimit(item model.Item) bool {
	def := s.itemDefinition(item)
	return def != nil && (def.IsLimit || def.IsObject)
}

// IsBlock reports whether item is a block.
func (s *Schema) IsBlock(item model.Item) bool {
	def := s.itemDefinition(item)
	return def != nil && def.IsBlock
}

// IsInline reports whether item is inline.
func (s *Schema) IsInline(item model.Item) bool {
	def := s.itemDefinition(item)
	return def != nil && def.IsInline
}

// IsContent reports whether item counts as content. Objects always do.
func (s *Schema) IsContent(item model.Item) bool {
	def := s.itemDefinition(item)
	return def != nil && (def.IsContent || def.IsObject)
}

// IsSelectable reports whether item can be selected as a whole. Objects
// always can.
func (s *Schema) IsSelectable(item model.Item) bool {
	def := s.itemDefinition(item)
	return def != nil && (def.IsSelectable || def.IsObject)
}

// NearestSelectionRange returns a collapsed range at position when text is
// allowed there. Otherwise it searches in direction, without leaving the
// closest limit element, for a text-accepting position or an object to
// select.
func (s *Schema) NearestSelectionRange(position model.Position, direction model.Direction) (model.Range, bool) {
	if s.CheckChildName(model.ContextOf(position), TextName) {
		return model.CollapsedRange(position), true
	}

	limit := position.Root()
	ancestors := position.Ancestors()
	for i := len(ancestors) - 1; i >= 0; i-- {
		if s.IsLimit(ancestors[i]) {
			limit = ancestors[i]
			break
		}
	}
	bounds := model.RangeIn(limit)

	var backward, forward *model.TreeWalker
	if direction == model.Both || direction == model.Backward {
		backward = model.NewTreeWalker(model.WalkerOptions{
			Boundaries:    &bounds,
			StartPosition: &position,
			Direction:     model.Backward,
		})
	}
	if direction == model.Both || direction == model.Forward {
		forward = model.NewTreeWalker(model.WalkerOptions{
			Boundaries:    &bounds,
			StartPosition: &position,
		})
	}

	check := func(v model.WalkerValue, edge model.WalkerValueType) (model.Range, bool) {
		if v.Type == edge && s.IsObject(v.Item) {
			return model.RangeOn(v.Item), true
		}
		if s.CheckChildName(model.ContextOf(v.NextPosition), TextName) {
			return model.CollapsedRange(v.NextPosition), true
		}
		return model.Range{}, false
	}

	for backward != nil || forward != nil {
		if backward != nil {
			v, ok := backward.Next()
			if !ok {
				backward = nil
			} else if r, found := check(v, model.WalkerElementEnd); found {
				return r, true
			}
		}
		if forward != nil {
			v, ok := forward.Next()
			if !ok {
				forward = nil
			} else if r, found := check(v, model.WalkerElementStart); found {
				return r, true
			}
		}
	}
	return model.Range{}, false
}

// LimitElement returns the innermost limit element containing every range,
// or the root when there is none.
func (s *Schema) LimitElement(ranges []model.Range) *model.Element {
	var el *model.Element
	for _, r := range ranges {
		common := r.CommonAncestor()
		if common == nil {
			continue
		}
		if el == nil {
			el = common
			continue
		}
		if c := el.CommonAncestor(common, true); c != nil {
			el = c
		}
	}
	for el != nil && !s.IsLimit(el) && el.Parent() != nil {
		el = el.Parent()
	}
	return el
}

// RemoveDisallowedAttributes removes every attribute of nodes and their
// descendants that is not allowed where the item now sits. Attributes
// stored by the document selection are kept.
func (s *Schema) RemoveDisallowedAttributes(nodes []model.Node, w *model.Writer) error {
	type removal struct {
		item model.Item
		r    model.Range
		key  string
	}
	var removals []removal

	collect := func(item model.Item) {
		ctx := model.ContextOfItem(item)
		for _, key := range item.AttributeKeys() {
			if strings.HasPrefix(key, model.StoredAttributePrefix) || s.CheckAttribute(ctx, key) {
				continue
			}
			rm := removal{item: item, key: key}
			if _, ok := item.(*model.Element); !ok {
				rm.r = model.RangeOn(item)
			}
			removals = append(removals, rm)
		}
	}

	for _, node := range nodes {
		switch n := node.(type) {
		case *model.Text:
			if n.Parent() != nil {
				collect(n)
			}
		case *model.Element:
			collect(n)
			for _, v := range model.RangeIn(n).Values(model.WalkerOptions{IgnoreElementEnd: true}) {
				collect(v.Item)
			}
		}
	}

	// Text items are addressed by range: attribute changes may merge text
	// nodes but never move offsets.
	for _, rm := range removals {
		var err error
		if rm.r.IsZero() {
			err = w.RemoveAttribute(rm.key, rm.item)
		} else {
			err = w.RemoveAttributeOnRange(rm.key, rm.r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AttributesWithProperty returns the attributes of item whose properties set
// property to value. A nil value matches any value of the property.
func (s *Schema) AttributesWithProperty(item model.Item, property string, value any) model.Attributes {
	out := model.Attributes{}
	for key, v := range item.Attributes() {
		props := s.attributeProperties[key]
		prop, ok := props[property]
		if !ok {
			continue
		}
		if value == nil || model.ValuesEqual(prop, value) {
			out[key] = v
		}
	}
	return out
}
