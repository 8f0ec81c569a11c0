// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"

	"github.com/rditech/rixs-toolbox/logger"

	"github.com/google/uuid"
	"github.com/proio-org/go-proio"
	"github.com/rs/zerolog"
)

type Op interface {
	GetDescription() string
	Run(input <-chan *Slice) <-chan *Slice
}

type OpArray []Op

func (ops OpArray) Run(stream <-chan *Slice) <-chan *Slice {
	for _, o := range ops {
		stream = o.Run(stream)
	}
	return stream
}

func (ops OpArray) Sink(stream <-chan *Slice) {
	for range ops.Run(stream) {
	}
}

var FlagSet = flag.NewFlagSet("", flag.ExitOnError)

var (
	outFile     = FlagSet.String("o", "", "file or URL to save output to (ws://, gs:// or a path)")
	compLevel   = FlagSet.Int("c", 1, "output compression level: 0 for uncompressed, 1 for LZ4 compression, 2 for GZIP compression, 3 for LZMA compression")
	readBufSize = FlagSet.Int("b", 10, "read buffer size in number of images")
	concurrency = FlagSet.Int("t", 1, "level of concurrency")
	maxSliceBuf = FlagSet.Int("e", 200, "max image buffer for maintaining image order")
	bucketThres = FlagSet.Int("d", 0x10000, "bucket dump threshold in bytes")
	loop        = FlagSet.Bool("l", false, "infinite loop over data")
	paramsFile  = FlagSet.String("p", "", "YAML file of calibration parameters")
	presetName  = FlagSet.String("preset", "", "built-in calibration parameters (default or legacy)")
	darkFiles   = FlagSet.String("dark", "", "comma separated dark frame files or URLs")
	credsFile   = FlagSet.String("creds", "", "JSON credentials file for gs:// URLs")
	logLevel    = FlagSet.String("log-level", "info", "log level")
	logJson     = FlagSet.Bool("log-json", false, "log JSON instead of console text")
	cpuProfile  = FlagSet.String("cpuprofile", "", "output file for cpu profiling")
	memProfile  = FlagSet.String("memprofile", "", "output file for memory profiling")
)

var runMetadata = struct {
	sync.Mutex
	keys   []string
	values map[string][]byte
}{values: make(map[string][]byte)}

// SetRunMetadata adds stream metadata pushed ahead of the reduced events.
func SetRunMetadata(key string, value []byte) {
	runMetadata.Lock()
	defer runMetadata.Unlock()
	if _, ok := runMetadata.values[key]; !ok {
		runMetadata.keys = append(runMetadata.keys, key)
	}
	runMetadata.values[key] = value
}

func (ops OpArray) RunCmdFlagParse() {
	if FlagSet.Parsed() {
		return
	}

	var desc string
	for i, o := range ops {
		desc += strconv.Itoa(i) + ") "
		desc += o.GetDescription()
		if i < len(ops)-1 {
			desc += "\n"
		}
	}

	FlagSet.Usage = func() {
		fmt.Fprintf(os.Stderr,
			`Usage: `+os.Args[0]+` [options] <fits-file-or-url>...

`+desc+`

options:
`,
		)
		FlagSet.PrintDefaults()
	}
	FlagSet.Parse(os.Args[1:])

	if FlagSet.NArg() < 1 {
		FlagSet.Usage()
		log.Fatal("Invalid arguments")
	}
}

// Logger builds the logger selected by the command line flags.
func Logger() zerolog.Logger {
	return logger.FromFlags(*logLevel, *logJson)
}

// Credentials returns the contents of the credentials file flag.
func Credentials() string {
	if *credsFile == "" {
		return ""
	}
	creds, err := os.ReadFile(*credsFile)
	if err != nil {
		log.Fatal(err)
	}
	return string(creds)
}

// ParamsFromFlags loads the parameter file, or else the preset, or else
// the defaults.
func ParamsFromFlags() (Params, error) {
	switch {
	case *paramsFile != "":
		return LoadParamsFile(*paramsFile)
	case *presetName != "":
		return Preset(*presetName)
	}
	p := DefaultParams()
	return p, p.Validate()
}

// NewReducerFromFlags builds a Reducer from the parameter and dark frame
// flags.
func NewReducerFromFlags(ctx context.Context, log zerolog.Logger, metrics *Metrics) (*Reducer, error) {
	p, err := ParamsFromFlags()
	if err != nil {
		return nil, err
	}
	var darks []string
	if *darkFiles != "" {
		darks = strings.Split(*darkFiles, ",")
	}
	r, err := NewReducer(ctx, p, darks, Credentials(), log)
	if err != nil {
		return nil, err
	}
	r.Metrics = metrics
	return r, nil
}

// NewReducer builds a Reducer for p, accumulating the dark frames listed
// in p and in darks when the background needs them.
func NewReducer(ctx context.Context, p Params, darks []string, credentials string, log zerolog.Logger) (*Reducer, error) {
	bg := BackgroundFromParams(p.Background)
	darks = append(append([]string(nil), p.Background.DarkFiles...), darks...)
	if bg.Kind == BackgroundDark && len(darks) == 0 {
		return nil, &ConfigurationError{"background.dark_files", "dark mode needs dark frames"}
	}
	if len(darks) > 0 {
		method, err := ParseDarkMethod(p.Background.Method)
		if err != nil {
			return nil, err
		}
		var frames []*Frame
		for _, name := range darks {
			f, err := LoadFrame(ctx, strings.TrimSpace(name), credentials)
			if err != nil {
				return nil, fmt.Errorf("loading dark frame: %w", err)
			}
			frames = append(frames, f)
		}
		if err := AccumulateDark(bg, frames, method, p.ROI); err != nil {
			return nil, err
		}
		log.Info().Int("frames", len(frames)).Str("method", p.Background.Method).Msg("dark frame accumulated")
	}

	return &Reducer{Params: p, Background: bg, Log: &log}, nil
}

// ExpandSources replaces every argument ending in a slash by the FITS
// files found under it.
func ExpandSources(ctx context.Context, args []string, credentials string) ([]string, error) {
	var sources []string
	for _, arg := range args {
		if !strings.HasSuffix(arg, "/") {
			sources = append(sources, arg)
			continue
		}
		objects, err := ListSources(ctx, arg, credentials)
		if err != nil {
			return nil, fmt.Errorf("listing %v: %w", arg, err)
		}
		for _, o := range objects {
			sources = append(sources, arg+o.Name)
		}
	}
	return sources, nil
}

// ReadSlices loads each source in turn and emits its images. Sources that
// fail to load are emitted as a single slice carrying the error.
func ReadSlices(ctx context.Context, sources []string, credentials string, bufSize int) <-chan *Slice {
	output := make(chan *Slice, bufSize)
	go func() {
		defer close(output)
		for _, source := range sources {
			frame, err := LoadFrame(ctx, source, credentials)
			if err != nil {
				select {
				case output <- &Slice{Source: source, Err: err}:
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, s := range frame.Slices() {
				select {
				case output <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return output
}

func (ops OpArray) RunCmd() {
	ops.RunCmdFlagParse()

	ctx := context.Background()
	zlog := Logger()
	creds := Credentials()

	sources, err := ExpandSources(ctx, FlagSet.Args(), creds)
	if err != nil {
		log.Fatal(err)
	}

	writer, err := GetWriter(ctx, *outFile, creds)
	if err != nil {
		log.Fatal(err)
	}
	switch *compLevel {
	case 3:
		writer.SetCompression(proio.LZMA)
	case 2:
		writer.SetCompression(proio.GZIP)
	case 1:
		writer.SetCompression(proio.LZ4)
	default:
		writer.SetCompression(proio.UNCOMPRESSED)
	}
	writer.BucketDumpThres = *bucketThres
	defer writer.Close()

	runID := uuid.New().String()
	writer.PushMetadata(MetaRunID, []byte(runID))
	runMetadata.Lock()
	for _, key := range runMetadata.keys {
		writer.PushMetadata(key, runMetadata.values[key])
	}
	runMetadata.Unlock()
	zlog.Info().Str("run", runID).Int("sources", len(sources)).Msg("run started")

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create cpu profile file: ", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	var nWritten, nFailed int
	for {
		stream := ops.Run(ReadSlices(ctx, sources, creds, *readBufSize))
		for slice := range stream {
			if slice.Err != nil {
				nFailed++
				zlog.Error().Err(slice.Err).Str("source", slice.Source).Int("frame", slice.Index).Msg("image skipped")
				continue
			}
			if slice.Result == nil {
				continue
			}
			if err := writer.Push(ResultToEvent(slice.Result)); err != nil {
				zlog.Error().Err(err).Msg("output closed")
				goto wrapup
			}
			nWritten++
		}

		if !*loop {
			break
		}
	}

wrapup:
	zlog.Info().Str("run", runID).Int("written", nWritten).Int("failed", nFailed).Msg("run finished")

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal(err)
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
		f.Close()
	}
}
