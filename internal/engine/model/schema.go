package model

// Schema decides which structures are allowed in the model. Content
// algorithms consult it; the concrete implementation lives in the schema package.
type Schema interface {
	// CheckChild reports whether node may be a child in context.
	CheckChild(context SchemaContext, node Item) bool

	// CheckChildName is CheckChild for an item given by name ("$text" for text).
	CheckChildName(context SchemaContext, name string) bool

	// CheckAttribute reports whether the last item of context may carry key.
	CheckAttribute(context SchemaContext, key string) bool

	// CheckMerge reports whether two adjacent elements may be merged.
	CheckMerge(left, right *Element) bool

	IsObject(item Item) bool
	IsLimit(item Item) bool
	IsBlock(item Item) bool
	IsInline(item Item) bool
	IsContent(item Item) bool
	IsSelectable(item Item) bool

	// NearestSelectionRange finds the closest position where a collapsed
	// selection may be placed, or a range on a selectable object.
	NearestSelectionRange(position Position, direction Direction) (Range, bool)

	// LimitElement returns the innermost limit element containing all ranges.
	LimitElement(ranges []Range) *Element

	// RemoveDisallowedAttributes strips attributes not allowed in their
	// current context from nodes and their descendants.
	RemoveDisallowedAttributes(nodes []Node, w *Writer) error

	// AttributesWithProperty returns the attributes of item whose definition
	// has property set to value.
	AttributesWithProperty(item Item, property string, value any) Attributes

	// AttributeProperties returns the properties declared for an attribute.
	AttributeProperties(key string) map[string]any
}

// ContextItem is one step of a schema context.
type ContextItem struct {
	Name string
	// Item is nil for contexts built from names only.
	Item Item
}

// SchemaContext is the chain of items from a root down to a point of interest.
type SchemaContext []ContextItem

// NewContext builds a context from item names.
func NewContext(names ...string) SchemaContext {
	ctx := make(SchemaContext, len(names))
	for i, name := range names {
		ctx[i] = ContextItem{Name: name}
	}
	return ctx
}

// ContextOf returns the context of a position: its parent and all ancestors.
func ContextOf(p Position) SchemaContext {
	parent := p.Parent()
	if parent == nil {
		return nil
	}
	return ContextOfItem(parent)
}

// ContextOfItem returns the context ending with item itself.
func ContextOfItem(item Item) SchemaContext {
	var ctx SchemaContext
	var parent *Element
	if el, ok := item.(*Element); ok {
		parent = el.parent
	} else {
		parent = item.Parent()
	}
	if parent != nil {
		for _, a := range parent.Ancestors(true, false) {
			ctx = append(ctx, ContextItem{Name: a.name, Item: a})
		}
	}
	return append(ctx, ContextItem{Name: ItemName(item), Item: item})
}

// Push returns a copy of ctx extended by item.
func (c SchemaContext) Push(item Item) SchemaContext {
	out := make(SchemaContext, len(c), len(c)+1)
	copy(out, c)
	return append(out, ContextItem{Name: ItemName(item), Item: item})
}

// PushName returns a copy of ctx extended by a named item.
func (c SchemaContext) PushName(name string) SchemaContext {
	out := make(SchemaContext, len(c), len(c)+1)
	copy(out, c)
	return append(out, ContextItem{Name: name})
}

// Last returns the deepest context item.
func (c SchemaContext) Last() ContextItem {
	if len(c) == 0 {
		return ContextItem{}
	}
	return c[len(c)-1]
}

// Names returns the item names of the context.
func (c SchemaContext) Names() []string {
	out := make([]string, len(c))
	for i, ci := range c {
		out[i] = ci.Name
	}
	return out
}

// TextName is the schema name of text.
const TextName = "$text"

// ItemName returns the schema name of an item.
func ItemName(item Item) string {
	switch it := item.(type) {
	case *Element:
		return it.name
	default:
		return TextName
	}
}
