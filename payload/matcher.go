package payload

import (
	"path"
	"strings"

	scene "github.com/meigma/scenekit"
)

// Matcher selects divertible fields by tag and derives a file name for them
// from a sibling string element.
//
// Empty Parent or Field match any tag. The name is the Text value of the
// parent's first NameTag child followed by Ext.
type Matcher struct {
	Parent  string
	Field   string
	NameTag string
	Ext     string
}

// TextureMatcher names the Data field of a Texture after the texture's
// Name, with a .dds extension.
var TextureMatcher = Matcher{Parent: "Texture", Field: "Data", NameTag: "Name", Ext: ".dds"}

// Matches reports whether the rule applies to elem under parent.
func (m Matcher) Matches(parent, elem *scene.Element) bool {
	if m.Parent != "" && (parent == nil || parent.Tag != m.Parent) {
		return false
	}
	return m.Field == "" || elem.Tag == m.Field
}

// Name returns the slash separated file name for elem's payload. It reports
// false when the rule does not apply or no usable name is present.
func (m Matcher) Name(parent, elem *scene.Element) (string, bool) {
	if !m.Matches(parent, elem) || parent == nil {
		return "", false
	}
	child := parent.Child(m.NameTag)
	if child == nil {
		return "", false
	}
	text, ok := child.Value.(scene.Text)
	if !ok {
		return "", false
	}
	name := strings.ReplaceAll(string(text), `\`, "/")
	name = path.Clean(strings.TrimLeft(name, "/"))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name + m.Ext, true
}
