// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rditech/rixs-toolbox/data"
)

var (
	outDir    = flag.String("o", ".", "directory to write the .dat files into")
	credsFile = flag.String("creds", "", "JSON credentials file for gs:// URLs")
)

func printUsage() {
	fmt.Fprintf(os.Stderr,
		`Usage: `+os.Args[0]+` [options] <proio-run-or-url>

Writes every reduced spectrum of a run as a text table, one file per
image, named after the source file and image index. A run of "-" is read
from stdin.

options:
`,
	)
	flag.PrintDefaults()
}

func datName(res *data.Result, n int) string {
	base := strings.TrimSuffix(path.Base(res.Source), path.Ext(res.Source))
	if base == "" || base == "." || base == "/" {
		base = fmt.Sprintf("S%04d", n)
	}
	return fmt.Sprintf("%s_%03d.dat", base, res.Frame)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}

	var creds string
	if *credsFile != "" {
		b, err := os.ReadFile(*credsFile)
		if err != nil {
			log.Fatal(err)
		}
		creds = string(b)
	}

	reader, err := data.GetReader(context.Background(), flag.Arg(0), creds)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	n := 0
	for event := range reader.ScanEvents(100) {
		res, err := data.EventToResult(event)
		if err != nil {
			log.Println("skipping event:", err)
			continue
		}

		name := filepath.Join(*outDir, datName(res, n))
		f, err := os.Create(name)
		if err != nil {
			log.Fatal(err)
		}
		err = data.WriteColumnsDat(f, res.Columns)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
		n++
	}
	if reader.Err != nil && reader.Err != io.EOF {
		log.Fatal(reader.Err)
	}
	log.Printf("%d spectra written to %s\n", n, *outDir)
}
