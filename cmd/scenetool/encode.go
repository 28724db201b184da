package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/markup"
	"github.com/meigma/scenekit/payload"
)

func runEncode(a *app, args []string) error {
	flags := a.newFlagSet("encode", "[flags] IN.xml OUT")
	endianness := flags.String("endianness", a.cfg.Endianness, "byte order to write: little or big (default: from the XML)")
	big := flags.Bool("big", false, "shorthand for --endianness big")
	textures := flags.String("textures", "", "directory holding external payloads (default: textures next to IN.xml)")
	archive := flags.String("archive", "", "payload archive written by decode --archive")
	if done, err := parse(flags, args); done {
		return err
	}
	if flags.NArg() != 2 {
		flags.Usage()
		return errors.New("encode: expected IN.xml and OUT")
	}
	in, out := flags.Arg(0), flags.Arg(1)

	doc, err := readXML(in)
	if err != nil {
		return err
	}

	opts := []scene.Option{scene.WithLogger(a.log.With("file", in))}
	if *big {
		*endianness = scene.BigEndian.String()
	}
	if *endianness != "" {
		e, err := scene.ParseEndianness(*endianness)
		if err != nil {
			return err
		}
		opts = append(opts, scene.WithEndianness(e))
	}

	if hasExternal(doc) {
		hook, closeHook, err := a.restoreHook(in, *textures, *archive)
		if err != nil {
			return err
		}
		defer closeHook()
		opts = append(opts, scene.WithHook(hook))
	}

	if err := writeScene(out, doc, opts...); err != nil {
		return err
	}
	a.status.OK(out, "")
	return nil
}

func readXML(path string) (*scene.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := markup.ReadXML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func hasExternal(doc *scene.Document) bool {
	errFound := errors.New("found")
	return doc.Walk(func(_, e *scene.Element, _ int) error {
		if e.External != nil {
			return errFound
		}
		return nil
	}) != nil
}

// restoreHook opens the payload source for an XML file. An explicit archive
// wins, then an explicit textures directory, then an archive named after
// the XML file, then the textures directory next to it.
func (a *app) restoreHook(xmlPath, textures, archive string) (scene.Hook, func(), error) {
	if archive == "" && textures == "" {
		stem := strings.TrimSuffix(xmlPath, filepath.Ext(xmlPath))
		if _, err := os.Stat(stem + archiveExt + indexExt); err == nil {
			archive = stem + archiveExt
		}
	}
	if archive != "" {
		return a.openArchive(archive)
	}

	if textures == "" {
		textures = filepath.Join(filepath.Dir(xmlPath), texturesDir)
	}
	store, err := payload.NewDirStore(textures, payload.WithMatcher(a.cfg.Matcher()), payload.WithLogger(a.log))
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func (a *app) openArchive(path string) (scene.Hook, func(), error) {
	index, err := os.ReadFile(path + indexExt)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	arc, err := payload.OpenArchive(index, io.NewSectionReader(f, 0, info.Size()),
		payload.WithMaxPayloadSize(a.cfg.MaxPayloadSize),
		payload.WithLogger(a.log),
	)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("opened payload archive", "path", path, "payloads", arc.Len())
	return arc, func() {
		_ = arc.Close()
		_ = f.Close()
	}, nil
}

func writeScene(path string, doc *scene.Document, opts ...scene.Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return scene.EncodeTo(f, doc, opts...)
}
