// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/proio-org/go-proio"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func newGcsClient(ctx context.Context, credentials []byte) (*storage.Client, error) {
	if len(credentials) == 0 {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(
		ctx,
		option.WithCredentialsJSON(credentials),
	)
}

func ListGcsObjects(ctx context.Context, bucket, prefix, suffix string, credentials []byte) ([]*SourceObject, error) {
	client, err := newGcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var objects []*SourceObject

	bucketHandle := client.Bucket(bucket)
	it := bucketHandle.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		objAttrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(objAttrs.Name, suffix) {
			objects = append(objects, &SourceObject{Name: path.Base(objAttrs.Name)})
		}
	}

	return objects, nil
}

type gcsObjectReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsObjectReader) Close() error {
	r.Reader.Close()
	return r.client.Close()
}

func OpenGcsObject(ctx context.Context, bucket, name string, credentials []byte) (io.ReadCloser, error) {
	client, err := newGcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}

	objectReader, err := client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &gcsObjectReader{Reader: objectReader, client: client}, nil
}

func CreateGcsWriter(ctx context.Context, bucket, name string, credentials []byte) (*proio.Writer, error) {
	client, err := newGcsClient(ctx, credentials)
	if err != nil {
		return nil, err
	}

	objectWriter := client.Bucket(bucket).Object(name).NewWriter(ctx)
	proioWriter := proio.NewWriter(objectWriter)
	proioWriter.DeferUntilClose(objectWriter.Close)
	proioWriter.DeferUntilClose(client.Close)
	return proioWriter, nil
}
