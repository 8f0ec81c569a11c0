// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/proio-org/go-proio"
	"golang.org/x/net/websocket"
)

// SourceObject names one frame file found under a storage URL.
type SourceObject struct {
	Name string
}

// filePath maps file://host/path URLs and plain paths to local paths.
func filePath(u *url.URL) string {
	if u.Scheme == "" {
		return filepath.Clean(u.Path)
	}
	return filepath.Clean(fmt.Sprintf("%v/%v", u.Host, strings.TrimLeft(u.Path, "/")))
}

// ListSources lists the FITS files under a gs:// prefix or a local
// directory.
func ListSources(ctx context.Context, urlString, credentials string) ([]*SourceObject, error) {
	return ListObjects(ctx, urlString, credentials, ".fits")
}

// ListRuns lists the recorded proio runs under a gs:// prefix or a local
// directory.
func ListRuns(ctx context.Context, urlString, credentials string) ([]*SourceObject, error) {
	return ListObjects(ctx, urlString, credentials, ".proio")
}

func ListObjects(ctx context.Context, urlString, credentials, suffix string) (sources []*SourceObject, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		sources, err = ListGcsObjects(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			suffix,
			[]byte(credentials),
		)
	case "file", "":
		var files []string
		files, err = filepath.Glob(filepath.Join(filePath(thisUrl), "*"+suffix))
		for _, file := range files {
			sources = append(sources, &SourceObject{Name: path.Base(file)})
		}
	default:
		err = errors.New("bad url scheme")
	}
	return
}

// OpenSource opens a frame file by gs:// or file:// URL, or by local path.
func OpenSource(ctx context.Context, urlString, credentials string) (rc io.ReadCloser, err error) {
	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "gs":
		rc, err = OpenGcsObject(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file", "":
		rc, err = os.Open(filePath(thisUrl))
	default:
		err = errors.New("bad url scheme")
	}
	return
}

// GetWriter opens a proio writer. An empty destination writes to stdout,
// ws:// and wss:// stream to a live server, gs:// writes an object and
// anything else is a local file.
func GetWriter(ctx context.Context, urlString, credentials string) (writer *proio.Writer, err error) {
	if urlString == "" || urlString == "-" {
		return proio.NewWriter(os.Stdout), nil
	}

	var thisUrl *url.URL
	thisUrl, err = url.Parse(urlString)
	if err != nil {
		return
	}

	switch thisUrl.Scheme {
	case "ws", "wss":
		var conn *websocket.Conn
		conn, err = websocket.Dial(urlString, "", "http://localhost/")
		if err != nil {
			return
		}
		writer = proio.NewWriter(conn)
		writer.DeferUntilClose(conn.Close)
	case "gs":
		writer, err = CreateGcsWriter(
			ctx,
			thisUrl.Host,
			strings.TrimLeft(thisUrl.Path, "/"),
			[]byte(credentials),
		)
	case "file", "":
		writer, err = proio.Create(filePath(thisUrl))
	default:
		err = errors.New("bad url scheme")
	}

	return
}

// GetReader opens a proio stream of reduced spectra.
func GetReader(ctx context.Context, urlString, credentials string) (*proio.Reader, error) {
	if urlString == "-" {
		return proio.NewReader(os.Stdin), nil
	}
	rc, err := OpenSource(ctx, urlString, credentials)
	if err != nil {
		return nil, err
	}
	reader := proio.NewReader(rc)
	reader.DeferUntilClose(func() { rc.Close() })
	return reader, nil
}
