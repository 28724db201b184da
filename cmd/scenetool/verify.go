package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/markup"
	"github.com/meigma/scenekit/payload"
)

type verifyResult struct {
	err  error
	diff string
}

func runVerify(a *app, args []string) error {
	flags := a.newFlagSet("verify", "[flags] IN...")
	throughXML := flags.Bool("xml", false, "round trip through XML, rebuilding the string table")
	workers := flags.IntP("workers", "j", a.cfg.Workers, "files verified in parallel")
	if done, err := parse(flags, args); done {
		return err
	}
	files := flags.Args()
	if len(files) == 0 {
		flags.Usage()
		return errors.New("verify: no input files")
	}

	results := make([]verifyResult, len(files))
	g := new(errgroup.Group)
	g.SetLimit(max(*workers, 1))
	for i, in := range files {
		g.Go(func() error {
			results[i] = a.verifyFile(in, *throughXML)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // results carry per-file errors

	failed := 0
	for i, in := range files {
		r := results[i]
		if r.err == nil {
			a.status.OK(in, "")
			continue
		}
		failed++
		a.status.Fail(in, r.err.Error())
		if r.diff != "" {
			fmt.Fprint(a.stdout, r.diff)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", failed, len(files))
	}
	return nil
}

func (a *app) verifyFile(in string, throughXML bool) verifyResult {
	data, err := os.ReadFile(in)
	if err != nil {
		return verifyResult{err: err}
	}
	store := payload.NewMemoryStore(payload.WithMatcher(a.cfg.Matcher()), payload.WithLogger(a.log))
	log := a.log.With("file", in)

	doc, err := scene.Decode(data, scene.WithHook(store), scene.WithLogger(log))
	if err != nil {
		return verifyResult{err: err}
	}
	if throughXML {
		var buf bytes.Buffer
		if err := markup.WriteXML(&buf, doc); err != nil {
			return verifyResult{err: err}
		}
		if doc, err = markup.ReadXML(&buf); err != nil {
			return verifyResult{err: err}
		}
	}

	out, err := scene.Encode(doc, scene.WithHook(store), scene.WithLogger(log))
	if err != nil {
		return verifyResult{err: err}
	}
	if bytes.Equal(data, out) {
		return verifyResult{}
	}

	r := verifyResult{err: errors.New("re-encoded bytes differ: " + firstDifference(data, out))}
	back, err := scene.Decode(out, scene.WithHook(store))
	if err != nil {
		r.err = fmt.Errorf("%w; re-encoded file does not decode: %w", r.err, err)
		return r
	}
	if r.diff, err = treeDiff(doc, back); err != nil {
		log.Warn("cannot diff trees", "error", err)
	}
	return r
}
