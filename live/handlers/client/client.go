// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live"
	"github.com/rditech/rixs-toolbox/live/message"

	"github.com/go-redis/redis"
	"github.com/gorilla/websocket"
	"github.com/proio-org/go-proio"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var nClients uint64

// DefaultNamespace is the namespace of clients when none is configured.
const DefaultNamespace = "everyone"

// ClientHandler serves the websocket of a browser client: it relays the
// client's commands to stream managers and the stream messages back.
type ClientHandler struct {
	Redis      *redis.Client
	Addr       string
	MaxNPR     float64
	Srv        *http.Server
	Namespaces []string
	Log        zerolog.Logger
	Metrics    *data.Metrics

	websocket.Upgrader
}

func (h *ClientHandler) namespaces() []string {
	if len(h.Namespaces) == 0 {
		return []string{DefaultNamespace}
	}
	return h.Namespaces
}

func (h *ClientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	namespaces := h.namespaces()
	nickname := r.URL.Query().Get("nickname")
	if nickname == "" {
		nickname = "nobody"
	}
	log := h.Log.With().Str("nickname", nickname).Strs("namespaces", namespaces).Logger()

	log.Info().Msg("starting client ws serve")
	c, err := h.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	subClient := redis.NewClient(&redis.Options{Addr: h.Addr})
	var broadcasts []string
	for _, name := range namespaces {
		broadcasts = append(broadcasts, name+" broadcast")
	}
	sub := subClient.Subscribe(broadcasts...)
	if _, err := sub.Receive(); err != nil {
		log.Error().Err(err).Msg("subscribe failed")
		subClient.Close()
		c.Close()
		return
	}
	broadcast := sub.ChannelSize(10)

	ctx, cancel := context.WithCancel(context.Background())
	resp := make(chan *message.Msg)

	go func() {
		defer cancel()

		for cmd := range message.ReceiveWsCmds(ctx, c) {
			h.Execute(ctx, log, nickname, namespaces, cmd, resp, sub)
		}
	}()

	msgBufs := make(chan []byte, 100)
	priorityBufs := make(chan []byte, 10000)

	go func() {
		atomic.AddUint64(&nClients, 1)
		defer func() {
			log.Info().Msg("stopped client ws serve")
			c.Close()
			time.Sleep(time.Second)
			atomic.AddUint64(&nClients, ^uint64(0))
			if h.Srv != nil && atomic.LoadUint64(&nClients) == 0 {
				log.Info().Msg("no clients, shutting down")
				h.Srv.Shutdown(context.Background())
			}
		}()
		defer subClient.Close()
		defer sub.Close()

		var buf []byte
		var msg *message.Msg
		for {
			select {
			case msg = <-resp:
				if msg == nil {
					continue
				}
				var err error
				buf, err = json.Marshal(msg)
				if err != nil {
					log.Error().Err(err).Msg("message not encoded")
					continue
				}
			case redisMsg := <-broadcast:
				buf = []byte(redisMsg.Payload)
				msg = &message.Msg{}
				json.Unmarshal(buf, msg)
			case <-ctx.Done():
				return
			}

			channel := priorityBufs
			switch msg.Type {
			case "show frame", "stream status":
				channel = msgBufs
			}

			select {
			case channel <- buf:
			default:
			}
		}
	}()

	go func() {
		for {
			msg := SystemStatus(time.Second)

			select {
			case <-ctx.Done():
				return
			default:
				if buf, err := json.Marshal(msg); err == nil {
					select {
					case priorityBufs <- buf:
					default:
					}
				}
			}
		}
	}()

	go func() {
		var buf []byte
		var npr float64
		last := time.Now()
		for {
			now := time.Now()
			alpha := now.Sub(last).Seconds()
			last = now
			if alpha > 1 {
				alpha = 1
			}
			npr *= 1 - alpha

			select {
			case buf = <-priorityBufs:
				for len(msgBufs) > 0 {
					<-msgBufs
				}
			default:
				select {
				case buf = <-priorityBufs:
				case buf = <-msgBufs:
					if npr < h.MaxNPR {
						npr += 1
					} else {
						buf = nil
					}
				case <-ctx.Done():
					return
				}
			}

			if buf != nil {
				if err := c.WriteMessage(websocket.TextMessage, buf); err != nil {
					log.Debug().Err(err).Msg("client write failed")
				}
			}
		}
	}()
}

func (h *ClientHandler) Execute(
	ctx context.Context,
	log zerolog.Logger,
	nickname string,
	namespaces []string,
	cmd *message.Cmd,
	resp chan<- *message.Msg,
	sub *redis.PubSub,
) {
	if cmd.Metadata == nil {
		cmd.Metadata = make(map[string]string)
	}
	log.Debug().Str("command", cmd.Command).Msg("client command")

	switch cmd.Command {
	case "get nickname":
		h.GetNickname(nickname, cmd, resp)
	case "list streams":
		h.ListStreams(namespaces, cmd, resp)
	case "stream cmd":
		h.StreamCmd(log, namespaces, cmd)
	case "stream sub":
		h.StreamSub(log, namespaces, cmd, sub, resp)
	case "stream unsub":
		h.StreamUnsub(log, namespaces, cmd, sub, resp)
	case "ls":
		h.ListRuns(ctx, cmd, resp)
	case "get meta":
		h.GetRunMetadata(ctx, cmd, resp)
	case "list presets":
		h.ListPresets(cmd, resp)
	case "play run":
		h.PlayRun(ctx, log, namespaces, cmd, resp)
	default:
		log.Warn().Str("command", cmd.Command).Msg("unknown command")
	}
}

func (h *ClientHandler) GetNickname(nickname string, cmd *message.Cmd, resp chan<- *message.Msg) {
	resp <- &message.Msg{
		Type:     "nickname",
		Metadata: map[string]string{"name": nickname},
	}
}

func (h *ClientHandler) ListStreams(namespaces []string, cmd *message.Cmd, resp chan<- *message.Msg) {
	for _, namespace := range namespaces {
		for _, stream := range h.Redis.PubSubChannels(namespace + " stream cmd *").Val() {
			resp <- &message.Msg{
				Type:     "stream announce",
				Metadata: map[string]string{"name": strings.TrimPrefix(stream, namespace+" stream cmd ")},
			}
		}
	}
}

func (h *ClientHandler) StreamCmd(log zerolog.Logger, namespaces []string, cmd *message.Cmd) {
	stream := cmd.Metadata["stream"]
	streamCmd := &message.Cmd{
		Command:  cmd.Metadata["stream cmd"],
		Metadata: make(map[string]string),
	}
	for k, v := range cmd.Metadata {
		if k != "stream" && k != "stream cmd" {
			streamCmd.Metadata[k] = v
		}
	}

	for _, namespace := range namespaces {
		if err := message.PublishJsonCmd(h.Redis, namespace+" stream cmd "+stream, streamCmd); err != nil {
			log.Error().Err(err).Str("stream", stream).Msg("stream command not sent")
		}
	}
}

func (h *ClientHandler) StreamSub(log zerolog.Logger, namespaces []string, cmd *message.Cmd, sub *redis.PubSub, resp chan<- *message.Msg) {
	stream := cmd.Metadata["stream"]
	for _, namespace := range namespaces {
		channel := namespace + " stream " + stream
		log.Debug().Str("channel", channel).Msg("subscribing")
		sub.Subscribe(channel)
	}

	resp <- &message.Msg{
		Type:     "stream sub",
		Metadata: map[string]string{"stream": stream},
	}
}

func (h *ClientHandler) StreamUnsub(log zerolog.Logger, namespaces []string, cmd *message.Cmd, sub *redis.PubSub, resp chan<- *message.Msg) {
	stream := cmd.Metadata["stream"]
	for _, namespace := range namespaces {
		channel := namespace + " stream " + stream
		log.Debug().Str("channel", channel).Msg("unsubscribing")
		sub.Unsubscribe(channel)
	}

	resp <- &message.Msg{
		Type:     "stream unsub",
		Metadata: map[string]string{"stream": stream},
	}
}

// ListRuns answers with the reduced runs stored under a URL.
func (h *ClientHandler) ListRuns(ctx context.Context, cmd *message.Cmd, resp chan<- *message.Msg) {
	go func() {
		msg := &message.Msg{
			Type: "run list",
			Metadata: map[string]string{
				"name":   cmd.Metadata["name"],
				"status": "failure",
				"url":    cmd.Metadata["url"],
			},
		}
		defer func() { resp <- msg }()

		runs, err := data.ListRuns(ctx, cmd.Metadata["url"], cmd.Metadata["credentials"])
		if err != nil {
			msg.Payload = []byte(err.Error())
			return
		}
		msg.Payload, err = json.Marshal(runs)
		if err != nil {
			msg.Payload = []byte(err.Error())
			return
		}

		msg.Metadata["status"] = "success"
	}()
}

// GetRunMetadata answers with the stream metadata of a reduced run.
func (h *ClientHandler) GetRunMetadata(ctx context.Context, cmd *message.Cmd, resp chan<- *message.Msg) {
	go func() {
		msg := &message.Msg{
			Type: "run meta",
			Metadata: map[string]string{
				"status": "failure",
				"url":    cmd.Metadata["url"],
			},
		}
		defer func() { resp <- msg }()

		reader, err := data.GetReader(ctx, cmd.Metadata["url"], cmd.Metadata["credentials"])
		if err != nil {
			msg.Payload = []byte(err.Error())
			return
		}
		defer reader.Close()

		reader.Skip(0)
		meta := make(map[string]string, len(reader.Metadata))
		for k, v := range reader.Metadata {
			meta[k] = string(v)
		}
		msg.Payload, err = json.Marshal(meta)
		if err != nil {
			msg.Payload = []byte(err.Error())
			return
		}

		msg.Metadata["status"] = "success"
	}()
}

func (h *ClientHandler) ListPresets(cmd *message.Cmd, resp chan<- *message.Msg) {
	msg := &message.Msg{
		Type:     "preset list",
		Metadata: map[string]string{"status": "success"},
	}
	var err error
	msg.Payload, err = json.Marshal(data.PresetNames())
	if err != nil {
		msg.Metadata["status"] = "failure"
		msg.Payload = []byte(err.Error())
	}
	resp <- msg
}

// PlayRun starts a stream replaying a URL. A .proio URL is a reduced run;
// anything else is taken as FITS sources, a trailing slash listing a
// directory or bucket prefix, reduced with the named preset.
func (h *ClientHandler) PlayRun(ctx context.Context, log zerolog.Logger, namespaces []string, cmd *message.Cmd, resp chan<- *message.Msg) {
	urlString := cmd.Metadata["url"]
	creds := cmd.Metadata["credentials"]
	fail := func(err error) {
		resp <- &message.Msg{
			Type:     "player failure",
			Metadata: map[string]string{"url": urlString},
			Payload:  []byte(err.Error()),
		}
	}

	thisUrl, err := url.Parse(urlString)
	if err != nil {
		fail(err)
		return
	}
	streamName := path.Base(strings.TrimSuffix(thisUrl.Path, "/"))
	speed := 1.0
	if v, err := strconv.ParseFloat(cmd.Metadata["speed"], 64); err == nil && v > 0 {
		speed = v
	}
	log = log.With().Str("url", urlString).Str("stream", streamName).Logger()

	var input <-chan *data.Slice
	var reducer *data.Reducer
	ctx, cancel := context.WithCancel(ctx)

	if strings.HasSuffix(thisUrl.Path, ".proio") {
		reader, err := data.GetReader(ctx, urlString, creds)
		if err != nil {
			cancel()
			fail(err)
			return
		}
		events := make(chan *proio.Event)
		go func() {
			defer close(events)
			defer reader.Close()
			for event := range reader.ScanEvents(1000) {
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}()
		input = data.EventSlices(events, 10)
	} else {
		preset := cmd.Metadata["preset"]
		if preset == "" {
			preset = "default"
		}
		p, err := data.Preset(preset)
		if err == nil {
			reducer, err = data.NewReducer(ctx, p, nil, creds, log)
		}
		var sources []string
		if err == nil {
			reducer.Metrics = h.Metrics
			sources, err = data.ExpandSources(ctx, []string{urlString}, creds)
		}
		if err != nil {
			cancel()
			fail(err)
			return
		}
		input = data.ReadSlices(ctx, sources, creds, 10)
	}

	go func() {
		defer cancel()

		ops := live.BuildPlayer(namespaces[len(namespaces)-1], streamName, h.Redis, h.Addr, log, reducer, speed)
		log.Info().Msg("player started")
		defer log.Info().Msg("player stopped")
		ops.Sink(input)
	}()
}

// SystemStatus samples the CPU usage over period and reports it with the
// memory use of the server and its host.
func SystemStatus(period time.Duration) *message.Msg {
	msg := &message.Msg{
		Type:     "system status",
		Metadata: make(map[string]string),
	}

	if usage, err := cpu.Percent(period, false); err == nil && len(usage) > 0 {
		if u := usage[0] / 100; !math.IsNaN(u) && !math.IsInf(u, 0) {
			msg.Metadata["usage"] = fmt.Sprintf("%v", u)
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		msg.Metadata["host mem used"] = fmt.Sprintf("%.1f", vm.UsedPercent)
	}

	memStats := &runtime.MemStats{}
	runtime.ReadMemStats(memStats)
	msg.Metadata["mem alloc"] = fmt.Sprintf("%v", memStats.Alloc>>20)
	msg.Metadata["mem sys"] = fmt.Sprintf("%v", memStats.Sys>>20)
	return msg
}
