// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live/message"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, resp <-chan *message.Msg) *message.Msg {
	t.Helper()
	select {
	case msg := <-resp:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
		return nil
	}
}

func TestNamespaces(t *testing.T) {
	h := &ClientHandler{}
	assert.Equal(t, []string{DefaultNamespace}, h.namespaces())
	h.Namespaces = []string{"beamline"}
	assert.Equal(t, []string{"beamline"}, h.namespaces())
}

func TestGetNickname(t *testing.T) {
	h := &ClientHandler{}
	resp := make(chan *message.Msg, 1)
	h.Execute(context.Background(), zerolog.Nop(), "alice", nil, &message.Cmd{Command: "get nickname"}, resp, nil)
	msg := receive(t, resp)
	assert.Equal(t, "nickname", msg.Type)
	assert.Equal(t, "alice", msg.Metadata["name"])
}

func TestListPresets(t *testing.T) {
	h := &ClientHandler{}
	resp := make(chan *message.Msg, 1)
	h.ListPresets(&message.Cmd{}, resp)
	msg := receive(t, resp)
	assert.Equal(t, "success", msg.Metadata["status"])
	var names []string
	require.NoError(t, json.Unmarshal(msg.Payload, &names))
	assert.Contains(t, names, "default")
}

func TestListRuns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.proio"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.fits"), nil, 0o644))

	h := &ClientHandler{}
	resp := make(chan *message.Msg, 1)
	h.ListRuns(context.Background(), &message.Cmd{Metadata: map[string]string{"url": dir, "name": "local"}}, resp)
	msg := receive(t, resp)
	assert.Equal(t, "run list", msg.Type)
	assert.Equal(t, "success", msg.Metadata["status"], string(msg.Payload))
	assert.Equal(t, "local", msg.Metadata["name"])

	var runs []data.SourceObject
	require.NoError(t, json.Unmarshal(msg.Payload, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run.proio", runs[0].Name)
}

func TestGetRunMetadata(t *testing.T) {
	name := filepath.Join(t.TempDir(), "run.proio")
	writer, err := data.GetWriter(context.Background(), name, "")
	require.NoError(t, err)
	writer.PushMetadata(data.MetaRunID, []byte("run-3"))
	require.NoError(t, writer.Push(data.ResultToEvent(&data.Result{Source: "a.fits", Columns: &data.Columns{}})))
	require.NoError(t, writer.Close())

	h := &ClientHandler{}
	resp := make(chan *message.Msg, 1)
	h.GetRunMetadata(context.Background(), &message.Cmd{Metadata: map[string]string{"url": name}}, resp)
	msg := receive(t, resp)
	require.Equal(t, "success", msg.Metadata["status"], string(msg.Payload))

	var meta map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &meta))
	assert.Equal(t, "run-3", meta[data.MetaRunID])
}

func TestGetRunMetadataMissing(t *testing.T) {
	h := &ClientHandler{}
	resp := make(chan *message.Msg, 1)
	h.GetRunMetadata(context.Background(), &message.Cmd{Metadata: map[string]string{"url": filepath.Join(t.TempDir(), "none.proio")}}, resp)
	msg := receive(t, resp)
	assert.Equal(t, "failure", msg.Metadata["status"])
	assert.NotEmpty(t, msg.Payload)
}

func TestPlayRunBadPreset(t *testing.T) {
	h := &ClientHandler{}
	resp := make(chan *message.Msg, 1)
	h.PlayRun(context.Background(), zerolog.Nop(), []string{DefaultNamespace}, &message.Cmd{
		Metadata: map[string]string{"url": t.TempDir() + "/", "preset": "nope"},
	}, resp)
	msg := receive(t, resp)
	assert.Equal(t, "player failure", msg.Type)
}

func TestSystemStatus(t *testing.T) {
	msg := SystemStatus(10 * time.Millisecond)
	assert.Equal(t, "system status", msg.Type)
	assert.Contains(t, msg.Metadata, "mem alloc")
	assert.Contains(t, msg.Metadata, "mem sys")
}
