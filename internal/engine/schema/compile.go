package schema

import "slices"

// compile turns the registered definitions into Definitions. Each rule kind
// is resolved for every item before the next kind, in registration order.
func (s *Schema) compile() {
	bases := make(map[string]*ItemDefinition, len(s.order))
	for _, name := range s.order {
		bases[name] = combine(s.definitions[name])
	}

	compiled := make(map[string]*Definition, len(s.order))
	for _, name := range s.order {
		base := bases[name]
		def := &Definition{
			Name:            name,
			AllowIn:         slices.Clone(base.AllowIn),
			AllowAttributes: slices.Clone(base.AllowAttributes),
		}
		compiled[name] = def
	}

	// allowChildren
	for _, name := range s.order {
		for _, child := range bases[name].AllowChildren {
			if c, ok := compiled[child]; ok {
				c.AllowIn = append(c.AllowIn, name)
			}
		}
	}

	// allowContentOf
	for _, name := range s.order {
		for _, source := range bases[name].AllowContentOf {
			for _, childName := range s.order {
				child := compiled[childName]
				if child.allowedIn(source) {
					child.AllowIn = append(child.AllowIn, name)
				}
			}
		}
	}

	// allowWhere
	for _, name := range s.order {
		def := compiled[name]
		for _, source := range bases[name].AllowWhere {
			if src, ok := compiled[source]; ok {
				def.AllowIn = append(def.AllowIn, src.AllowIn...)
			}
		}
	}

	// allowAttributesOf
	for _, name := range s.order {
		def := compiled[name]
		for _, source := range bases[name].AllowAttributesOf {
			if src, ok := compiled[source]; ok {
				def.AllowAttributes = append(def.AllowAttributes, src.AllowAttributes...)
			}
		}
	}

	// inheritTypesFrom: only flags the item leaves unset are inherited.
	for _, name := range s.order {
		base := bases[name]
		for _, source := range base.InheritTypesFrom {
			src, ok := bases[source]
			if !ok {
				continue
			}
			for _, flag := range typeFlags {
				if dst := base.flag(flag); *dst == nil {
					*dst = *src.flag(flag)
				}
			}
		}
	}

	for _, name := range s.order {
		def := compiled[name]
		base := bases[name]
		def.AllowIn = cleanNames(def.AllowIn, compiled)
		def.AllowAttributes = dedupe(def.AllowAttributes)
		def.IsBlock = flagValue(base.IsBlock)
		def.IsInline = flagValue(base.IsInline)
		def.IsObject = flagValue(base.IsObject)
		def.IsLimit = flagValue(base.IsLimit)
		def.IsContent = flagValue(base.IsContent)
		def.IsSelectable = flagValue(base.IsSelectable)
	}

	s.compiled = compiled
}

// combine folds every definition registered for one item into one.
func combine(defs []ItemDefinition) *ItemDefinition {
	out := &ItemDefinition{}
	for _, d := range defs {
		out.AllowIn = append(out.AllowIn, d.AllowIn...)
		out.AllowChildren = append(out.AllowChildren, d.AllowChildren...)
		out.AllowAttributes = append(out.AllowAttributes, d.AllowAttributes...)
		out.AllowContentOf = append(out.AllowContentOf, d.AllowContentOf...)
		out.AllowWhere = append(out.AllowWhere, d.AllowWhere...)
		out.AllowAttributesOf = append(out.AllowAttributesOf, d.AllowAttributesOf...)
		out.InheritTypesFrom = append(out.InheritTypesFrom, d.InheritTypesFrom...)
		if d.InheritAllFrom != "" {
			out.AllowContentOf = append(out.AllowContentOf, d.InheritAllFrom)
			out.AllowWhere = append(out.AllowWhere, d.InheritAllFrom)
			out.AllowAttributesOf = append(out.AllowAttributesOf, d.InheritAllFrom)
			out.InheritTypesFrom = append(out.InheritTypesFrom, d.InheritAllFrom)
		}
		for _, flag := range typeFlags {
			if v := *d.flag(flag); v != nil {
				*out.flag(flag) = Flag(*v)
			}
		}
	}
	return out
}

// cleanNames drops duplicates and names of unregistered items.
func cleanNames(names []string, compiled map[string]*Definition) []string {
	out := names[:0]
	for _, n := range dedupe(names) {
		if _, ok := compiled[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func flagValue(b *bool) bool {
	return b != nil && *b
}
