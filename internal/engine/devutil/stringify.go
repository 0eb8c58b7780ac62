package devutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/livedoc/internal/engine/model"
)

type printer struct {
	sb    strings.Builder
	marks map[string]string
}

func pathKey(path []int) string {
	var sb strings.Builder
	for i, p := range path {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

// Stringify writes node in model string notation. Roots and document
// fragments print only their children. Boundaries of ranges rooted in the
// node's tree are printed as "[" and "]".
func Stringify(node model.Node, ranges ...model.Range) string {
	p := &printer{marks: make(map[string]string)}
	for _, r := range ranges {
		if r.IsCollapsed() {
			p.marks[pathKey(r.Start.Path())] += "[]"
			continue
		}
		p.marks[pathKey(r.Start.Path())] += "["
		end := pathKey(r.End.Path())
		p.marks[end] = "]" + p.marks[end]
	}

	switch n := node.(type) {
	case *model.Text:
		p.text(n, nil, 0)
	case *model.Element:
		if n.Parent() == nil {
			p.children(n, nil)
		} else {
			p.element(n, n.Path())
		}
	}
	return p.sb.String()
}

func (p *printer) mark(path []int, offset int) {
	full := append(append([]int(nil), path...), offset)
	p.sb.WriteString(p.marks[pathKey(full)])
}

func (p *printer) children(el *model.Element, path []int) {
	offset := 0
	for _, child := range el.Children() {
		p.mark(path, offset)
		switch c := child.(type) {
		case *model.Text:
			p.text(c, path, offset)
		case *model.Element:
			p.element(c, append(append([]int(nil), path...), offset))
		}
		offset += child.OffsetSize()
	}
	p.mark(path, offset)
}

func (p *printer) element(el *model.Element, path []int) {
	p.sb.WriteString("<" + el.Name())
	p.attributes(el.Attributes())
	p.sb.WriteString(">")
	p.children(el, path)
	p.sb.WriteString("</" + el.Name() + ">")
}

// text prints t, whose first byte sits at offset in the element at path.
// Marks at the text boundaries are printed by the caller.
func (p *printer) text(t *model.Text, path []int, offset int) {
	attrs := t.Attributes()
	if len(attrs) > 0 {
		p.sb.WriteString("<" + model.TextName)
		p.attributes(attrs)
		p.sb.WriteString(">")
	}
	data := t.Data()
	last := 0
	for i := 1; i < len(data); i++ {
		if m, ok := p.marks[pathKey(append(append([]int(nil), path...), offset+i))]; ok {
			p.sb.WriteString(data[last:i])
			p.sb.WriteString(m)
			last = i
		}
	}
	p.sb.WriteString(data[last:])
	if len(attrs) > 0 {
		p.sb.WriteString("</" + model.TextName + ">")
	}
}

func (p *printer) attributes(attrs model.Attributes) {
	for _, key := range attrs.Keys() {
		fmt.Fprintf(&p.sb, ` %s="%s"`, key, FormatValue(attrs[key]))
	}
}

// FormatValue renders an attribute value the way ParseValue reads it back.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool, int, int64, float64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
