// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package ingress

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rditech/rixs-toolbox/data"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamName(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string][]byte
		want     string
	}{
		{"stream key", map[string][]byte{data.MetaStream: []byte(" beamline "), data.MetaRunID: []byte("0123456789")}, "beamline"},
		{"run id prefix", map[string][]byte{data.MetaRunID: []byte("0123456789")}, "01234567"},
		{"short run id", map[string][]byte{data.MetaRunID: []byte("abc")}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreamName(tt.metadata))
		})
	}

	random := StreamName(nil)
	assert.Len(t, random, 8)
	assert.NotEqual(t, random, StreamName(nil))
}

func TestIngressChannel(t *testing.T) {
	assert.Equal(t, "everyone ingress rixs", IngressChannel("everyone", "rixs"))
}

func TestPubSubReader(t *testing.T) {
	ch := make(chan *redis.Message, 2)
	ch <- &redis.Message{Payload: "hello "}
	ch <- &redis.Message{Payload: "world"}
	close(ch)

	rdr := &PubSubReader{Channel: ch, Ctx: context.Background()}
	buf := make([]byte, 4)
	var got []byte
	for {
		n, err := rdr.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "hello world", string(got))
}

func TestPubSubReaderCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rdr := &PubSubReader{Channel: make(chan *redis.Message), Ctx: ctx}
	cancel()
	n, err := rdr.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.Equal(t, io.EOF, err)
}

func TestPubSubWriter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := client.Subscribe("test ingress x")
	_, err = sub.Receive()
	require.NoError(t, err)
	defer sub.Close()

	wrt := &PubSubWriter{Redis: client, Channel: "test ingress x"}
	n, err := wrt.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "payload", msg.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("nothing published")
	}
}
