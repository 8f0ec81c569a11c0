// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package ingress

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live"
	"github.com/rditech/rixs-toolbox/live/message"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/proio-org/go-proio"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
)

// ReadTimeout closes an ingress connection that stays silent this long.
var ReadTimeout = 10 * time.Second

// WsCollector accepts reduced event streams over websocket and forwards
// them to a stream manager through redis PubSub.
type WsCollector struct {
	Redis            *redis.Client
	Addr             string
	DefaultNamespace string
	Log              zerolog.Logger
}

// StreamName names a stream after its Stream metadata, else after the
// start of its run ID, else randomly.
func StreamName(metadata map[string][]byte) string {
	if name := strings.TrimSpace(string(metadata[data.MetaStream])); name != "" {
		return name
	}
	runID := string(metadata[data.MetaRunID])
	if len(runID) > 8 {
		runID = runID[:8]
	}
	if runID != "" {
		return runID
	}
	return uuid.New().String()[:8]
}

// IngressChannel is the PubSub channel carrying the events of a stream.
func IngressChannel(namespace, stream string) string {
	return namespace + " ingress " + stream
}

func (wsc *WsCollector) Collect(c *websocket.Conn) {
	log := wsc.Log.With().Str("remote", c.Request().RemoteAddr).Logger()
	log.Info().Msg("serving websocket data collector")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := proio.NewReader(c)
	defer reader.Close()
	reader.Skip(0)
	input := reader.ScanEvents(1000)

	namespace := wsc.DefaultNamespace
	streamName := StreamName(reader.Metadata)
	chanString := IngressChannel(namespace, streamName)
	log = log.With().Str("stream", streamName).Logger()

	// if there is no stream data handler, create one
	nSub := wsc.Redis.PubSubNumSub(chanString).Val()
	if nSub[chanString] == 0 {
		if err := wsc.makeNewDataHandler(ctx, namespace, streamName); err != nil {
			log.Error().Err(err).Msg("no data handler")
			return
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: wsc.Addr})
	defer redisClient.Close()
	writer := proio.NewWriter(&PubSubWriter{Redis: redisClient, Channel: chanString})
	defer writer.Close()
	writer.BucketDumpThres = 0x1
	writer.SetCompression(proio.UNCOMPRESSED)
	for key, value := range reader.Metadata {
		writer.PushMetadata(key, value)
	}
	log.Info().Str("channel", chanString).Msg("data collector writing")
	defer log.Info().Str("channel", chanString).Msg("data collector done")

	c.SetReadDeadline(time.Now().Add(ReadTimeout))
	for event := range input {
		// if there is no stream data handler, stop
		nSub := wsc.Redis.PubSubNumSub(chanString).Val()
		if nSub[chanString] == 0 {
			log.Warn().Str("channel", chanString).Msg("no stream handler")
			break
		}

		if err := writer.Push(event); err != nil {
			log.Error().Err(err).Msg("forwarding failed")
			break
		}

		c.SetReadDeadline(time.Now().Add(ReadTimeout))
	}
}

func (wsc *WsCollector) makeNewDataHandler(ctx context.Context, namespace, streamName string) error {
	chanString := IngressChannel(namespace, streamName)
	log := wsc.Log.With().Str("stream", streamName).Logger()
	log.Info().Str("channel", chanString).Msg("subscribing new data handler")

	redisClient := redis.NewClient(&redis.Options{Addr: wsc.Addr})
	pubSub := redisClient.Subscribe(chanString)
	if _, err := pubSub.Receive(); err != nil {
		redisClient.Close()
		return err
	}

	go func() {
		defer redisClient.Close()
		defer pubSub.Close()
		reader := proio.NewReader(&PubSubReader{
			Channel: pubSub.ChannelSize(1000),
			Ctx:     ctx,
		})
		defer reader.Close()
		input := data.EventSlices(reader.ScanEvents(1000), 1000)

		// publish input buffer size
		go func() {
			publish := func(value string) {
				message.PublishJsonMsg(redisClient, namespace+" stream "+streamName, &message.Msg{
					Type:     "stream status",
					Metadata: map[string]string{"stream": streamName, "Buffer Size": value},
				})
			}
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					publish("stream disconnected, wrapping up")
					return
				case <-ticker.C:
					publish(strconv.Itoa(len(input)))
				}
			}
		}()

		live.BuildOpArray(namespace, streamName, redisClient, wsc.Addr, log).Sink(input)

		log.Info().Str("channel", chanString).Msg("quitting subscriber")
	}()

	return nil
}
