// Package scene decodes and encodes the binary scene-graph format used by
// game scene assets (.oct, .bent and similar files).
//
// A scene file consists of a fixed 60-byte header, a NUL separated string
// table and a flat stream of tagged records. Every record starts with a
// 4-byte tag word packing a 6-bit nesting level, a 10-bit type code and a
// 16-bit string table index naming the element. Nesting is implicit: a record
// whose level is greater than its predecessor's is a child of it.
//
// Decode turns that stream into a [Document], a tree of [Element] values with
// typed [Value] payloads. Encode performs the inverse and reproduces the input
// bit for bit when the document is unchanged:
//
//	doc, err := scene.Decode(data)
//	if err != nil {
//	    return err
//	}
//	out, err := scene.Encode(doc) // bytes.Equal(out, data)
//
// # Payload diversion
//
// Large binary fields (texture bitmaps) can be moved out of the tree through a
// [Hook]. During decode the hook receives the raw bytes and returns a storage
// reference; during encode it supplies the bytes back. The payload package
// provides directory, memory and archive backed hooks.
package scene
