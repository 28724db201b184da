//go:generate flatc --go --go-namespace fb -o ../internal ../schema/payload.fbs

// Package payload provides scene.Hook implementations that keep large binary
// fields outside the scene tree.
//
// A Matcher decides which payloads are diverted and how they are named.
// DirStore writes each payload to its own file, the way texture data has
// traditionally been extracted next to a decoded scene:
//
//	store, err := payload.NewDirStore("textures")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	doc, err := scene.Decode(data, scene.WithHook(store))
//
// ArchiveWriter and Archive store payloads content addressed instead. Each
// payload is identified by its sha256 digest, identical payloads are stored
// once and stored bytes are optionally zstd compressed. The archive is a data
// stream plus a FlatBuffers index mapping digests to byte ranges:
//
//	w, err := payload.NewArchiveWriter(dataFile)
//	doc, err := scene.Decode(data, scene.WithHook(w))
//	index, err := w.Finish()
//
//	a, err := payload.OpenArchive(index, dataFile)
//	out, err := scene.Encode(doc, scene.WithHook(a))
//
// All stores are safe for concurrent use.
package payload
