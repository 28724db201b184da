package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/markup"
	"github.com/meigma/scenekit/payload"
)

const (
	texturesDir = "textures"
	archiveExt  = ".payloads"
	indexExt    = ".idx"
)

type decodeJob struct {
	mode        scene.Mode
	outDir      string
	textures    *payload.DirStore
	archive     bool
	compression payload.Compression
}

func runDecode(a *app, args []string) error {
	flags := a.newFlagSet("decode", "[flags] IN...")
	outDir := flags.StringP("out", "o", "", "output directory (default: next to each input)")
	textures := flags.String("textures", "", "directory for exported textures (default: OUT/textures)")
	archive := flags.Bool("archive", false, "store payloads in a content addressed archive per input")
	inline := flags.Bool("inline", false, "keep every payload inline in the XML")
	mode := flags.String("mode", a.cfg.Mode, "decode mode: strict or best-effort")
	compression := flags.String("compression", a.cfg.Compression, "archive compression: none or zstd")
	workers := flags.IntP("workers", "j", a.cfg.Workers, "files processed in parallel")
	if done, err := parse(flags, args); done {
		return err
	}
	files := flags.Args()
	if len(files) == 0 {
		flags.Usage()
		return errors.New("decode: no input files")
	}
	if *archive && *inline {
		return errors.New("decode: --archive and --inline are exclusive")
	}

	job := decodeJob{outDir: *outDir, archive: *archive}
	var ok bool
	if job.mode, ok = scene.ParseMode(*mode); !ok {
		return fmt.Errorf("decode: unknown mode %q", *mode)
	}
	var err error
	if job.compression, err = payload.ParseCompression(*compression); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if !*archive && !*inline {
		dir := *textures
		if dir == "" {
			base := *outDir
			if base == "" {
				base = filepath.Dir(files[0])
			}
			dir = filepath.Join(base, texturesDir)
		}
		store, err := payload.NewDirStore(dir,
			payload.WithMatcher(a.cfg.Matcher()),
			payload.WithLogger(a.log),
		)
		if err != nil {
			return err
		}
		defer store.Close()
		job.textures = store
	}

	var failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(max(*workers, 1))
	for _, in := range files {
		g.Go(func() error {
			detail, err := a.decodeFile(in, job)
			switch {
			case errors.Is(err, errPartial):
				a.status.Warn(in, detail)
			case err != nil:
				failed.Add(1)
				a.status.Fail(in, err.Error())
			default:
				a.status.OK(in, detail)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through status

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d files failed to decode", n, len(files))
	}
	return nil
}

// errPartial marks a best-effort decode that wrote a partial tree.
var errPartial = errors.New("partial scene tree")

func (a *app) decodeFile(in string, job decodeJob) (detail string, err error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return "", err
	}
	outDir := job.outDir
	if outDir == "" {
		outDir = filepath.Dir(in)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	xmlPath := filepath.Join(outDir, stem+".xml")

	opts := []scene.Option{
		scene.WithMode(job.mode),
		scene.WithLogger(a.log.With("file", in)),
	}

	var (
		aw       *payload.ArchiveWriter
		dataFile *os.File
	)
	switch {
	case job.archive:
		dataFile, err = os.Create(filepath.Join(outDir, stem+archiveExt))
		if err != nil {
			return "", err
		}
		defer func() {
			_ = dataFile.Close()
			if err != nil && !errors.Is(err, errPartial) {
				_ = os.Remove(dataFile.Name())
			}
		}()
		aw, err = payload.NewArchiveWriter(dataFile,
			payload.WithCompression(job.compression),
			payload.WithMaxPayloadSize(a.cfg.MaxPayloadSize),
			payload.WithLogger(a.log),
		)
		if err != nil {
			return "", err
		}
		opts = append(opts, scene.WithHook(aw))
	case job.textures != nil:
		opts = append(opts, scene.WithHook(job.textures))
	}

	doc, decodeErr := scene.Decode(data, opts...)
	if doc == nil {
		return "", decodeErr
	}
	if err := writeXML(xmlPath, doc); err != nil {
		return "", err
	}

	detail = xmlPath
	if aw != nil {
		index, err := aw.Finish()
		if err != nil {
			return "", err
		}
		if err := dataFile.Close(); err != nil {
			return "", err
		}
		if err := os.WriteFile(dataFile.Name()+indexExt, index, 0o644); err != nil { //nolint:gosec // output files are world readable
			return "", err
		}
		detail = fmt.Sprintf("%s (%d payloads, %d deduplicated)", xmlPath, aw.Len(), aw.Deduplicated())
	}
	if decodeErr != nil {
		return fmt.Sprintf("%s: %v", detail, decodeErr), errPartial
	}
	return detail, nil
}

func writeXML(path string, doc *scene.Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return markup.WriteXML(f, doc)
}
