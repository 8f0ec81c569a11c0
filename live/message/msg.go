// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package message

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Msg is what clients receive: a rendered show frame, a source list or a
// run status.
type Msg struct {
	Type     string
	Metadata map[string]string
	Payload  []byte
}

func PublishJsonMsg(client *redis.Client, channel string, msg *Msg) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.Publish(channel, string(msgBytes)).Err()
}

// Cmd is a client request addressed to a stream manager or a show.
type Cmd struct {
	Command  string
	Metadata map[string]string
}

func PublishJsonCmd(client *redis.Client, channel string, cmd *Cmd) error {
	cmdBytes, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return client.Publish(channel, string(cmdBytes)).Err()
}

type Executer interface {
	Execute(*Cmd) error
}

func ReceivePubSubCmds(ctx context.Context, log zerolog.Logger, addr, channel string) <-chan *Cmd {
	cmds := make(chan *Cmd)
	log = log.With().Str("channel", channel).Logger()

	go func() {
		defer close(cmds)

		redisClient := redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
		sub := redisClient.Subscribe(channel)
		if _, err := sub.Receive(); err != nil {
			log.Error().Err(err).Msg("subscribe failed")
			return
		}
		defer sub.Close()

		log.Debug().Msg("listening for commands")
		defer log.Debug().Msg("done listening for commands")

		msgs := sub.ChannelSize(10)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var cmd Cmd
				if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
					log.Warn().Err(err).Msg("dropping malformed command")
					continue
				}
				select {
				case cmds <- &cmd:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return cmds
}

func ReceiveWsCmds(ctx context.Context, c *websocket.Conn) <-chan *Cmd {
	cmds := make(chan *Cmd)

	go func() {
		defer close(cmds)

		for {
			var cmd Cmd
			err := c.ReadJSON(&cmd)
			if err != nil {
				return
			}
			select {
			case cmds <- &cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	return cmds
}
