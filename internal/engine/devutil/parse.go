package devutil

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/livedoc/internal/engine/model"
)

// ErrSyntax is returned for malformed model strings.
var ErrSyntax = errors.New("model string syntax error")

// PathRange is a selection range expressed as offset paths.
type PathRange struct {
	Start []int
	End   []int
}

// Parsed is the result of parsing a model string.
type Parsed struct {
	// Fragment holds the parsed nodes.
	Fragment *model.Element

	// Ranges are the selection ranges found, relative to Fragment, in the
	// order their start markers appeared.
	Ranges []PathRange
}

type openElement struct {
	name     string
	attrs    model.Attributes
	children []model.Node
	path     []int
	offset   int
}

type parser struct {
	src   string
	pos   int
	stack []*openElement
	text  model.Attributes // attributes of the open <$text>, nil outside

	starts [][]int
	ranges []PathRange
}

// Parse parses a model string such as
//
//	<paragraph>f[o]o</paragraph><image src="a.png"></image>
//
// Text with attributes is written as <$text bold="true">foo</$text>.
// "[" and "]" mark selection range boundaries. Attribute values that are
// valid JSON are decoded (true, 1, {"a":1}); anything else is kept as a string.
func Parse(data string) (*Parsed, error) {
	p := &parser{src: data}
	p.stack = []*openElement{{name: model.DocumentFragmentName}}

	for p.pos < len(p.src) {
		var err error
		switch c := p.src[p.pos]; {
		case c == '<' && strings.HasPrefix(p.src[p.pos:], "</"):
			err = p.closeTag()
		case c == '<':
			err = p.openTag()
		case c == '[':
			p.starts = append(p.starts, p.currentPath())
			p.pos++
		case c == ']':
			err = p.endRange()
		default:
			p.textRun()
		}
		if err != nil {
			return nil, err
		}
	}

	if len(p.stack) != 1 || p.text != nil {
		return nil, fmt.Errorf("%w: unclosed element %q", ErrSyntax, p.top().name)
	}
	if len(p.starts) > 0 {
		return nil, fmt.Errorf("%w: unclosed selection range", ErrSyntax)
	}
	return &Parsed{
		Fragment: model.NewDocumentFragment(p.top().children...),
		Ranges:   p.ranges,
	}, nil
}

func (p *parser) top() *openElement {
	return p.stack[len(p.stack)-1]
}

func (p *parser) currentPath() []int {
	top := p.top()
	path := make([]int, 0, len(top.path)+1)
	path = append(path, top.path...)
	return append(path, top.offset)
}

func (p *parser) endRange() error {
	if len(p.starts) == 0 {
		return fmt.Errorf("%w: \"]\" without \"[\" at %d", ErrSyntax, p.pos)
	}
	start := p.starts[len(p.starts)-1]
	p.starts = p.starts[:len(p.starts)-1]
	p.ranges = append(p.ranges, PathRange{Start: start, End: p.currentPath()})
	p.pos++
	return nil
}

func (p *parser) textRun() {
	end := strings.IndexAny(p.src[p.pos:], "<[]")
	if end < 0 {
		end = len(p.src) - p.pos
	}
	data := p.src[p.pos : p.pos+end]
	p.pos += end

	top := p.top()
	top.children = append(top.children, model.NewText(data, p.text))
	top.offset += len(data)
}

func (p *parser) openTag() error {
	end := strings.IndexByte(p.src[p.pos:], '>')
	if end < 0 {
		return fmt.Errorf("%w: unterminated tag at %d", ErrSyntax, p.pos)
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	selfClosing := strings.HasSuffix(body, "/")
	body = strings.TrimSuffix(body, "/")
	name, rest, _ := strings.Cut(strings.TrimSpace(body), " ")
	if name == "" {
		return fmt.Errorf("%w: empty tag name at %d", ErrSyntax, p.pos)
	}
	attrs, err := parseAttributes(rest)
	if err != nil {
		return err
	}

	if name == model.TextName {
		if p.text != nil {
			return fmt.Errorf("%w: nested <$text>", ErrSyntax)
		}
		p.text = attrs
		if selfClosing {
			p.text = nil
		}
		return nil
	}
	if p.text != nil {
		return fmt.Errorf("%w: element <%s> inside <$text>", ErrSyntax, name)
	}

	top := p.top()
	el := &openElement{name: name, attrs: attrs, path: p.currentPath()}
	if selfClosing {
		top.children = append(top.children, model.NewElement(name, attrs))
		top.offset++
		return nil
	}
	p.stack = append(p.stack, el)
	return nil
}

func (p *parser) closeTag() error {
	end := strings.IndexByte(p.src[p.pos:], '>')
	if end < 0 {
		return fmt.Errorf("%w: unterminated tag at %d", ErrSyntax, p.pos)
	}
	name := strings.TrimSpace(p.src[p.pos+2 : p.pos+end])
	p.pos += end + 1

	if name == model.TextName {
		if p.text == nil {
			return fmt.Errorf("%w: unexpected </$text>", ErrSyntax)
		}
		p.text = nil
		return nil
	}
	if len(p.stack) == 1 || p.top().name != name {
		return fmt.Errorf("%w: unexpected </%s>", ErrSyntax, name)
	}

	el := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	parent := p.top()
	parent.children = append(parent.children, model.NewElement(el.name, el.attrs, el.children...))
	parent.offset++
	return nil
}

// parseAttributes reads key="value" pairs.
func parseAttributes(s string) (model.Attributes, error) {
	attrs := model.Attributes{}
	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		key, rest, ok := strings.Cut(s, "=")
		if !ok || !strings.HasPrefix(rest, `"`) {
			return nil, fmt.Errorf("%w: bad attribute %q", ErrSyntax, s)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated value for %q", ErrSyntax, key)
		}
		attrs[strings.TrimSpace(key)] = ParseValue(rest[1 : end+1])
		s = rest[end+2:]
	}
	return attrs, nil
}

// ParseValue decodes an attribute value. Whole numbers decode to int.
func ParseValue(raw string) any {
	if !gjson.Valid(raw) {
		return raw
	}
	r := gjson.Parse(raw)
	switch r.Type {
	case gjson.True, gjson.False:
		return r.Bool()
	case gjson.Number:
		if r.Num == math.Trunc(r.Num) && math.Abs(r.Num) < 1<<53 {
			return int(r.Num)
		}
		return r.Num
	case gjson.String:
		return r.String()
	case gjson.Null:
		return raw
	default:
		return normalizeJSON(r.Value())
	}
}

// normalizeJSON turns whole float64 values decoded from JSON into ints so
// values compare equal to ones built in Go.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int(x)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeJSON(x[k])
		}
		return x
	default:
		return v
	}
}
