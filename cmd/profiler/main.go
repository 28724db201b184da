// Command profiler runs the scene codec in a loop over a generated scene and
// writes CPU, wall clock, heap and trace profiles.
package main

import (
	"bytes"
	"fmt"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/pflag"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/internal/testutil"
	"github.com/meigma/scenekit/markup"
	"github.com/meigma/scenekit/payload"
)

type config struct {
	mode        string
	textures    int
	textureSize int
	endianness  string
	compression string
	pattern     string
	duration    time.Duration
	iterations  int
	pprofAddr   string
	cpuProfile  string
	fgProfile   string
	memProfile  string
	traceFile   string
	randomSeed  int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes []byte
	sinkDoc   *scene.Document
)

func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	data, err := makeScene(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.fgProfile != "" {
		stopFG, fgErr := startWallClock(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr) //nolint:gocritic // exitAfterDefer is intentional - profiles are best-effort
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, data)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, data []byte) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	compression, err := payload.ParseCompression(cfg.compression)
	if err != nil {
		return profileStats{}, err
	}

	switch cfg.mode {
	case "decode":
		for shouldContinue() {
			doc, err := scene.Decode(data)
			if err != nil {
				return profileStats{}, err
			}
			sinkDoc = doc
			byteCount += int64(len(data))
			ops++
		}

	case "encode":
		doc, err := scene.Decode(data)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			out, err := scene.Encode(doc)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += int64(len(out))
			ops++
		}

	case "archive-write":
		var stream bytes.Buffer
		for shouldContinue() {
			stream.Reset()
			w, err := payload.NewArchiveWriter(&stream, payload.WithCompression(compression))
			if err != nil {
				return profileStats{}, err
			}
			doc, err := scene.Decode(data, scene.WithHook(w))
			if err != nil {
				return profileStats{}, err
			}
			if sinkBytes, err = w.Finish(); err != nil {
				return profileStats{}, err
			}
			sinkDoc = doc
			byteCount += int64(len(data))
			ops++
		}

	case "archive-load":
		var stream bytes.Buffer
		w, err := payload.NewArchiveWriter(&stream, payload.WithCompression(compression))
		if err != nil {
			return profileStats{}, err
		}
		if _, err := scene.Decode(data, scene.WithHook(w)); err != nil {
			return profileStats{}, err
		}
		index, err := w.Finish()
		if err != nil {
			return profileStats{}, err
		}
		arc, err := payload.OpenArchive(index, bytes.NewReader(stream.Bytes()))
		if err != nil {
			return profileStats{}, err
		}
		defer arc.Close()

		var digests []digest.Digest
		for d := range arc.Digests() {
			digests = append(digests, d)
		}
		if len(digests) == 0 {
			return profileStats{}, fmt.Errorf("mode %s needs at least one texture", cfg.mode)
		}
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
		for shouldContinue() {
			content, err := arc.Load(digests[rng.Intn(len(digests))])
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "xml-write":
		doc, err := scene.Decode(data)
		if err != nil {
			return profileStats{}, err
		}
		var buf bytes.Buffer
		for shouldContinue() {
			buf.Reset()
			if err := markup.WriteXML(&buf, doc); err != nil {
				return profileStats{}, err
			}
			byteCount += int64(buf.Len())
			ops++
		}

	case "xml-read":
		doc, err := scene.Decode(data)
		if err != nil {
			return profileStats{}, err
		}
		var buf bytes.Buffer
		if err := markup.WriteXML(&buf, doc); err != nil {
			return profileStats{}, err
		}
		text := buf.Bytes()
		for shouldContinue() {
			back, err := markup.ReadXML(bytes.NewReader(text))
			if err != nil {
				return profileStats{}, err
			}
			sinkDoc = back
			byteCount += int64(len(text))
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	pflag.StringVar(&cfg.mode, "mode", "decode", "mode: decode, encode, archive-write, archive-load, xml-write, xml-read")
	pflag.IntVar(&cfg.textures, "textures", 64, "number of texture elements")
	pflag.IntVar(&cfg.textureSize, "texture-size", 16<<10, "texture payload size in bytes")
	pflag.StringVar(&cfg.endianness, "endianness", "little", "byte order: little or big")
	pflag.StringVar(&cfg.compression, "compression", "zstd", "archive compression: none or zstd")
	pflag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	pflag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	pflag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	pflag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	pflag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	pflag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	pflag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	pflag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	pflag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	pflag.Parse()
	return cfg
}

// makeScene encodes a scene with cfg.textures textures of cfg.textureSize
// bytes each. Texture sizes are capped by the 16-bit payload count.
//
//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func makeScene(cfg config) ([]byte, error) {
	e, err := scene.ParseEndianness(cfg.endianness)
	if err != nil {
		return nil, err
	}
	size := min(cfg.textureSize, 0xFFFF)
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks

	textures := make([]testutil.Texture, cfg.textures)
	for i := range textures {
		data := make([]byte, size)
		switch cfg.pattern {
		case "compressible":
			for j := range data {
				data[j] = byte(j % 61)
			}
			data[0] = byte(i)
		case "random":
			_, _ = rng.Read(data)
		default:
			return nil, fmt.Errorf("unknown pattern: %s", cfg.pattern)
		}
		textures[i] = testutil.Texture{Name: fmt.Sprintf("tex%04d", i), Data: data}
	}
	return scene.Encode(testutil.TextureScene(e, textures...))
}

// startWallClock starts an fgprof profile written to path in pprof format.
// The returned function stops the profile and closes the file.
func startWallClock(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	stop := fgprof.Start(f, fgprof.FormatPprof)
	return func() error {
		err := stop()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
