package scene

// RootTag is the tag of the synthetic root element preceding every tree.
const RootTag = "root_node"

// EntryTag is the markup name of list items. Like RootTag it is reserved and
// never stored in a built string table.
const EntryTag = "entry"

// TypeAttr is the attribute recording the layout name of a decoded element.
const TypeAttr = "type"

// Document is a decoded scene file held fully in memory.
type Document struct {
	Endianness Endianness

	// Root is the synthetic level-0 element. Its children are the scene.
	Root *Element

	// Strings is the string table read during decode. When set, Encode
	// reuses it so unchanged documents re-encode byte for byte. Leave nil to
	// have Encode build a fresh table from the tree.
	Strings []string

	// Trailing holds bytes following the tree region, re-emitted verbatim.
	Trailing []byte
}

// NewDocument returns an empty document with a root element.
func NewDocument(e Endianness) *Document {
	return &Document{Endianness: e, Root: &Element{Tag: RootTag, Code: CodeEmpty}}
}

// Element is one tagged node of the scene tree.
type Element struct {
	Tag      string
	Code     TypeCode
	Attrs    map[string]string
	Value    Value
	Children []*Element

	// External is set when the element's payload was diverted to a Hook.
	External *External
}

// External references a payload held outside the tree.
type External struct {
	Ref  string
	Size int64
}

// NewElement returns an element with the layout's type attribute set.
func NewElement(tag string, code TypeCode, v Value) *Element {
	e := &Element{Tag: tag, Code: code, Value: v}
	if l, ok := LayoutByCode(code); ok && l.Shape != ShapeEmpty {
		e.SetAttr(TypeAttr, l.Name)
	}
	return e
}

// Attr returns the named attribute, or "" when unset.
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// SetAttr sets an attribute, allocating the map on first use.
func (e *Element) SetAttr(name, value string) {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string, 1)
	}
	e.Attrs[name] = value
}

// Append adds children and returns e.
func (e *Element) Append(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Child returns the first direct child with the given tag.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Layout resolves the element's layout from Code, falling back to the
// type attribute when Code is unset.
func (e *Element) Layout() (Layout, bool) {
	if e.Code != 0 {
		return LayoutByCode(e.Code)
	}
	if name := e.Attr(TypeAttr); name != "" {
		return LayoutByName(name)
	}
	return LayoutByCode(CodeEmpty)
}

// Walk visits every element below the root in pre-order. Level is 1 for the
// root's children. Returning a non-nil error stops the walk.
func (d *Document) Walk(fn func(parent, elem *Element, level int) error) error {
	if d.Root == nil {
		return nil
	}
	return walk(d.Root, 1, fn)
}

func walk(parent *Element, level int, fn func(parent, elem *Element, level int) error) error {
	for _, c := range parent.Children {
		if err := fn(parent, c, level); err != nil {
			return err
		}
		if err := walk(c, level+1, fn); err != nil {
			return err
		}
	}
	return nil
}
