package markup

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	scene "github.com/meigma/scenekit"
)

// MaxInlineBytes is the longest byte list WriteYAML prints in full. Longer
// lists are summarized by length and digest.
const MaxInlineBytes = 64

// WriteYAML writes a read-only YAML view of doc.
func WriteYAML(w io.Writer, doc *scene.Document) error {
	if doc == nil || doc.Root == nil {
		return errors.New("markup: nil document")
	}

	var count int
	_ = doc.Walk(func(_, _ *scene.Element, _ int) error { //nolint:errcheck // callback never fails
		count++
		return nil
	})

	top := mapping(
		"endianness", str(doc.Endianness.String()),
		"root", str(doc.Root.Tag),
		"elements", integer(int64(count)),
	)
	if doc.Strings != nil {
		top.Content = append(top.Content, str("strings"), integer(int64(len(doc.Strings))))
	}
	if len(doc.Trailing) > 0 {
		top.Content = append(top.Content, str("trailing"), bytesNode(doc.Trailing))
	}
	top.Content = append(top.Content, str("children"), children(doc.Root.Children))

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func children(elems []*scene.Element) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range elems {
		seq.Content = append(seq.Content, elementNode(e))
	}
	return seq
}

func elementNode(e *scene.Element) *yaml.Node {
	n := mapping("tag", str(e.Tag))
	if l, ok := e.Layout(); ok && l.Shape != scene.ShapeEmpty {
		n.Content = append(n.Content, str("type"), str(l.Name))
	} else if !ok {
		n.Content = append(n.Content, str("code"), str(fmt.Sprintf("%#x", uint16(e.Code))))
	}

	switch {
	case e.External != nil:
		n.Content = append(n.Content, str("external"), mapping(
			"ref", str(e.External.Ref),
			"size", integer(e.External.Size),
		))
	case e.Value != nil:
		n.Content = append(n.Content, str("value"), valueNode(e.Value))
	}

	if len(e.Children) > 0 {
		n.Content = append(n.Content, str("children"), children(e.Children))
	}
	return n
}

func valueNode(v scene.Value) *yaml.Node {
	switch v := v.(type) {
	case scene.Text:
		return str(string(v))
	case scene.TextList:
		seq := flow()
		for _, s := range v {
			seq.Content = append(seq.Content, str(s))
		}
		return seq
	case scene.TextPair:
		return mapping("label", str(v.Label), "content", str(v.Content))
	case scene.LabeledByte:
		return mapping("label", str(v.Label), "value", integer(int64(v.Value)))
	case scene.Float:
		return float(float32(v))
	case scene.FloatList:
		return floats(v)
	case scene.LabeledFloats:
		return mapping("label", str(v.Label), "values", floats(v.Values))
	case scene.Int:
		return integer(int64(v))
	case scene.IntList:
		seq := flow()
		for _, i := range v {
			seq.Content = append(seq.Content, integer(i))
		}
		return seq
	case scene.ByteList:
		return bytesNode(v)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func bytesNode(b []byte) *yaml.Node {
	if len(b) > MaxInlineBytes {
		return str(fmt.Sprintf("%d bytes %s", len(b), digest.FromBytes(b)))
	}
	seq := flow()
	for _, c := range b {
		seq.Content = append(seq.Content, integer(int64(c)))
	}
	return seq
}

func mapping(kv ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Content = append(n.Content, str(kv[i].(string)), kv[i+1].(*yaml.Node)) //nolint:forcetypeassert // key/value pairs
	}
	return n
}

func flow() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func integer(i int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
}

func float(f float32) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(f)}
}

func floats(values []float32) *yaml.Node {
	seq := flow()
	for _, f := range values {
		seq.Content = append(seq.Content, float(f))
	}
	return seq
}
