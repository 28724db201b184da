package main

import (
	"errors"
	"fmt"
	"os"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/markup"
)

func runDump(a *app, args []string) error {
	flags := a.newFlagSet("dump", "[flags] IN")
	format := flags.StringP("format", "f", "yaml", "output format: yaml or xml")
	mode := flags.String("mode", a.cfg.Mode, "decode mode: strict or best-effort")
	if done, err := parse(flags, args); done {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errors.New("dump: expected one input file")
	}
	m, ok := scene.ParseMode(*mode)
	if !ok {
		return fmt.Errorf("dump: unknown mode %q", *mode)
	}

	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}
	doc, decodeErr := scene.Decode(data, scene.WithMode(m), scene.WithLogger(a.log))
	if doc == nil {
		return decodeErr
	}

	switch *format {
	case "yaml":
		err = markup.WriteYAML(a.stdout, doc)
	case "xml":
		err = markup.WriteXML(a.stdout, doc)
	default:
		return fmt.Errorf("dump: unknown format %q", *format)
	}
	if err != nil {
		return err
	}
	return decodeErr
}
