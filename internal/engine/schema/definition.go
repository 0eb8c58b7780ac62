package schema

import "slices"

// ItemDefinition describes one schema item. Definitions registered for the
// same name are combined: lists are concatenated, the last set flag wins.
type ItemDefinition struct {
	// AllowIn lists the items this item may be a child of.
	AllowIn []string `toml:"allow_in" yaml:"allow_in"`

	// AllowChildren lists the items that may be children of this item.
	AllowChildren []string `toml:"allow_children" yaml:"allow_children"`

	// AllowAttributes lists the attribute keys the item may carry.
	AllowAttributes []string `toml:"allow_attributes" yaml:"allow_attributes"`

	// AllowContentOf makes every child of the named items a valid child here.
	AllowContentOf []string `toml:"allow_content_of" yaml:"allow_content_of"`

	// AllowWhere allows the item wherever the named items are allowed.
	AllowWhere []string `toml:"allow_where" yaml:"allow_where"`

	// AllowAttributesOf copies the allowed attributes of the named items.
	AllowAttributesOf []string `toml:"allow_attributes_of" yaml:"allow_attributes_of"`

	// InheritTypesFrom copies unset type flags from the named items.
	InheritTypesFrom []string `toml:"inherit_types_from" yaml:"inherit_types_from"`

	// InheritAllFrom is shorthand for AllowContentOf, AllowWhere,
	// AllowAttributesOf and InheritTypesFrom of a single item.
	InheritAllFrom string `toml:"inherit_all_from" yaml:"inherit_all_from"`

	IsBlock      *bool `toml:"is_block" yaml:"is_block"`
	IsInline     *bool `toml:"is_inline" yaml:"is_inline"`
	IsObject     *bool `toml:"is_object" yaml:"is_object"`
	IsLimit      *bool `toml:"is_limit" yaml:"is_limit"`
	IsContent    *bool `toml:"is_content" yaml:"is_content"`
	IsSelectable *bool `toml:"is_selectable" yaml:"is_selectable"`
}

// Flag returns a pointer to b for the Is* fields of ItemDefinition.
func Flag(b bool) *bool {
	return &b
}

// Generic item names registered by New.
const (
	RootName         = "$root"
	ContainerName    = "$container"
	BlockName        = "$block"
	BlockObjectName  = "$blockObject"
	InlineObjectName = "$inlineObject"
	TextName         = "$text"
	FragmentName     = "$documentFragment"
	MarkerName       = "$marker"
	ClipboardHolder  = "$clipboardHolder"
)

const (
	typeFlagBlock      = "isBlock"
	typeFlagInline     = "isInline"
	typeFlagObject     = "isObject"
	typeFlagLimit      = "isLimit"
	typeFlagContent    = "isContent"
	typeFlagSelectable = "isSelectable"
)

var typeFlags = []string{
	typeFlagBlock, typeFlagInline, typeFlagObject,
	typeFlagLimit, typeFlagContent, typeFlagSelectable,
}

func (d *ItemDefinition) flag(name string) **bool {
	switch name {
	case typeFlagBlock:
		return &d.IsBlock
	case typeFlagInline:
		return &d.IsInline
	case typeFlagObject:
		return &d.IsObject
	case typeFlagLimit:
		return &d.IsLimit
	case typeFlagContent:
		return &d.IsContent
	default:
		return &d.IsSelectable
	}
}

// Definition is the compiled, read-only view of an item.
type Definition struct {
	Name            string
	AllowIn         []string
	AllowAttributes []string

	IsBlock      bool
	IsInline     bool
	IsObject     bool
	IsLimit      bool
	IsContent    bool
	IsSelectable bool
}

func (d *Definition) allowedIn(name string) bool {
	return slices.Contains(d.AllowIn, name)
}

func (d *Definition) allowsAttribute(key string) bool {
	return slices.Contains(d.AllowAttributes, key)
}

func genericItems() []struct {
	name string
	def  ItemDefinition
} {
	return []struct {
		name string
		def  ItemDefinition
	}{
		{RootName, ItemDefinition{IsLimit: Flag(true)}},
		{ContainerName, ItemDefinition{AllowIn: []string{RootName, ContainerName}}},
		{BlockName, ItemDefinition{AllowIn: []string{RootName, ContainerName}, IsBlock: Flag(true)}},
		{BlockObjectName, ItemDefinition{AllowWhere: []string{BlockName}, IsBlock: Flag(true), IsObject: Flag(true)}},
		{InlineObjectName, ItemDefinition{
			AllowWhere:        []string{TextName},
			AllowAttributesOf: []string{TextName},
			IsInline:          Flag(true),
			IsObject:          Flag(true),
		}},
		{TextName, ItemDefinition{AllowIn: []string{BlockName}, IsInline: Flag(true), IsContent: Flag(true)}},
		{FragmentName, ItemDefinition{AllowContentOf: []string{RootName}, AllowChildren: []string{TextName}, IsLimit: Flag(true)}},
		{ClipboardHolder, ItemDefinition{AllowContentOf: []string{RootName}, AllowChildren: []string{TextName}, IsLimit: Flag(true)}},
	}
}
