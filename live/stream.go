// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live/message"
	"github.com/rditech/rixs-toolbox/live/shows"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/proio-org/go-proio"
	"github.com/rs/zerolog"
)

type ShowInfo struct {
	Show          shows.Show
	Cancel        context.CancelFunc
	SampleChannel chan<- interface{}
}

type ShowType int

const (
	Spectrum ShowType = iota
	Trend
	Scan
	SpotDensity
	Map
)

func (t ShowType) String() string {
	switch t {
	case Spectrum:
		return "Spectrum"
	case Trend:
		return "Trend"
	case Scan:
		return "Scan"
	case SpotDensity:
		return "Spot Density"
	case Map:
		return "Map"
	}
	return "ShowType(" + strconv.Itoa(int(t)) + ")"
}

// showTypeOf returns the show type able to draw sample.
func showTypeOf(sample interface{}) (ShowType, bool) {
	switch sample.(type) {
	case *shows.SpectrumSample:
		return Spectrum, true
	case *shows.TrendSample:
		return Trend, true
	case *shows.ScanSample:
		return Scan, true
	case *shows.SpotSample:
		return SpotDensity, true
	case *shows.MapSample:
		return Map, true
	}
	return 0, false
}

type SourceType int

const (
	Normal SourceType = iota
	Advanced
)

func (t SourceType) String() string {
	if t == Advanced {
		return "Advanced"
	}
	return "Normal"
}

type SourceInfo struct {
	Name        string
	ShowIds     []uuid.UUID
	CompatShows []ShowType
	Type        SourceType
}

// StreamManager sits at the end of a live pipeline. It turns reduced
// slices into show samples, executes client commands received on its
// command channel and optionally records the stream as a run.
type StreamManager struct {
	Namespace       string
	Name            string
	Redis           *redis.Client
	Addr            string
	Log             zerolog.Logger
	InitShows       func(*StreamManager)
	GenerateSources func(*StreamManager, *data.Slice)

	ctx context.Context

	showInfo   map[uuid.UUID]ShowInfo
	sourceInfo map[string]*SourceInfo
	status     Status

	runChannel  chan *data.Slice
	runFilename string

	doPubDesc bool
	startTime time.Time
}

func (m *StreamManager) init() {
	if m.sourceInfo == nil {
		m.sourceInfo = make(map[string]*SourceInfo)
	}
	if m.showInfo == nil {
		m.showInfo = make(map[uuid.UUID]ShowInfo)
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	m.Log = m.Log.With().Str("stream", m.Name).Logger()
}

func (m *StreamManager) Manage(input <-chan *data.Slice, output chan<- *data.Slice) {
	var cancel context.CancelFunc
	m.ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	m.init()
	defer m.rmAllShows(&message.Cmd{})

	if m.InitShows != nil {
		m.InitShows(m)
	}

	cmds := message.ReceivePubSubCmds(m.ctx, m.Log, m.Addr, m.Namespace+" stream cmd "+m.Name)
	m.announce()
	defer m.closeStream()
	defer m.stopRun(&message.Cmd{})

	m.startTime = time.Now()
	for {
		select {
		case slice := <-input:
			if slice == nil {
				return
			}

			m.handleMetadata(slice)
			if m.GenerateSources != nil && slice.Err == nil {
				m.GenerateSources(m, slice)
			}

			if m.runChannel != nil {
				select {
				case m.runChannel <- slice:
				default:
					m.Log.Warn().Str("source", slice.Source).Int("frame", slice.Index).Msg("run writer behind, slice not recorded")
				}
			}
			output <- slice
		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			if cmd.Command == "kill" {
				return
			}

			m.execute(cmd)
		}
	}
}

// Elapsed returns the seconds since the stream started.
func (m *StreamManager) Elapsed() float64 {
	return time.Since(m.startTime).Seconds()
}

func (m *StreamManager) GetSourceInfo(source string) *SourceInfo {
	sourceInfo := m.sourceInfo[source]
	if sourceInfo == nil {
		sourceInfo = &SourceInfo{Name: source}
		m.sourceInfo[source] = sourceInfo
	}
	return sourceInfo
}

// HandleSource announces a source the first time it produces a sample and
// hands the sample to every compatible show mapped to the source.
func (m *StreamManager) HandleSource(sourceInfo *SourceInfo, t SourceType, sample interface{}) {
	if sourceInfo == nil || sample == nil {
		return
	}
	showType, ok := showTypeOf(sample)
	if !ok {
		return
	}

	if sourceInfo.CompatShows == nil || sourceInfo.Type != t {
		sourceInfo.Type = t
		sourceInfo.CompatShows = []ShowType{showType}
		m.listSource(sourceInfo.Name, sourceInfo)
	}

	for _, showId := range sourceInfo.ShowIds {
		showInfo, ok := m.showInfo[showId]
		if !ok {
			continue
		}
		if !compatible(showInfo.Show, showType) {
			continue
		}
		select {
		case showInfo.SampleChannel <- sample:
		case <-m.ctx.Done():
			return
		}
	}
}

func compatible(show shows.Show, t ShowType) bool {
	switch show.(type) {
	case *shows.Spectrum:
		return t == Spectrum
	case *shows.Trend:
		return t == Trend
	case *shows.Scan:
		return t == Scan
	case *shows.SpotDensity:
		return t == SpotDensity
	case *shows.Map:
		return t == Map
	}
	return false
}

func (m *StreamManager) publish(msg *message.Msg) {
	if err := message.PublishJsonMsg(m.Redis, m.Namespace+" stream "+m.Name, msg); err != nil {
		m.Log.Error().Err(err).Str("type", msg.Type).Msg("publish failed")
	}
}

func (m *StreamManager) broadcast(msgType string) {
	msg := &message.Msg{
		Type:     msgType,
		Metadata: map[string]string{"name": m.Name},
	}
	if err := message.PublishJsonMsg(m.Redis, m.Namespace+" broadcast", msg); err != nil {
		m.Log.Error().Err(err).Str("type", msgType).Msg("broadcast failed")
	}
}

func (m *StreamManager) announce() {
	m.broadcast("stream announce")
}

func (m *StreamManager) closeStream() {
	m.broadcast("stream close")
}

func (m *StreamManager) publishStatus(key, value string) {
	m.status.SetString(key, value)
	m.publish(&message.Msg{
		Type:     "stream status",
		Metadata: map[string]string{"stream": m.Name, key: value},
	})
}

func (m *StreamManager) execute(cmd *message.Cmd) {
	if cmd.Metadata == nil {
		cmd.Metadata = make(map[string]string)
	}
	m.Log.Debug().Str("command", cmd.Command).Msg("stream command")

	switch cmd.Command {
	case "new show":
		m.newShow(cmd)
	case "map source":
		m.mapSource(cmd)
	case "rm show":
		m.rmShow(cmd)
	case "rm all shows":
		m.rmAllShows(cmd)
	case "show cmd":
		m.showCmd(cmd)
	case "pub all shows":
		m.pubAllShows(cmd)
	case "list all sources":
		m.listAllSources(cmd)
	case "start run":
		m.startRun(cmd)
	case "stop run":
		m.stopRun(cmd)
	case "pub run meta":
		m.pubRunMeta(cmd)
	case "pub desc":
		m.pubDesc(cmd)
	default:
		m.Log.Warn().Str("command", cmd.Command).Msg("unknown stream command")
	}
}

// NewShow builds a show by its type name as sent by clients.
func NewShow(typeName string, period time.Duration, source string) shows.Show {
	switch typeName {
	case Spectrum.String():
		return shows.NewSpectrum(period)
	case Trend.String():
		return shows.NewTrend(period)
	case Scan.String():
		s := shows.NewScan(period)
		s.Title.Text = source
		return s
	case SpotDensity.String():
		return shows.NewSpotDensity(period)
	case Map.String():
		return shows.NewMap(period, strings.TrimPrefix(source, "Map "), data.ColEnergyLoss)
	}
	return nil
}

func (m *StreamManager) newShow(cmd *message.Cmd) {
	var period time.Duration
	if v, ok := cmd.Metadata["period"]; ok {
		ns, err := strconv.Atoi(v)
		if err == nil {
			period = time.Duration(ns)
		}
	}
	if period == 0 {
		period = 50 * time.Millisecond
	} else if period < 10*time.Millisecond {
		period = 10 * time.Millisecond
	}

	show := NewShow(cmd.Metadata["type"], period, cmd.Metadata["source"])
	if show == nil {
		m.Log.Warn().Str("type", cmd.Metadata["type"]).Msg("unknown show type")
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	showId := uuid.New()
	idString := showId.String()
	channel := make(chan interface{}, 10000)
	m.showInfo[showId] = ShowInfo{
		Show:          show,
		Cancel:        cancel,
		SampleChannel: channel,
	}
	log := m.Log.With().Str("show", idString).Str("type", cmd.Metadata["type"]).Logger()

	go func() {
		log.Debug().Msg("starting show frame pusher")
		defer log.Debug().Msg("stopped show frame pusher")
		defer m.publish(&message.Msg{
			Type:     "show close",
			Metadata: map[string]string{"stream": m.Name, "show id": idString},
		})

		show.UpdateFrame()

		var lastFrameCount uint64
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			frame, frameCount := show.Frame()
			if frameCount != lastFrameCount && frame != nil {
				out := *frame
				out.Type = "show frame"
				out.Metadata = make(map[string]string, len(frame.Metadata)+2)
				for k, v := range frame.Metadata {
					out.Metadata[k] = v
				}
				out.Metadata["show id"] = idString
				out.Metadata["stream name"] = m.Name
				m.publish(&out)
				time.Sleep(period)
			} else {
				time.Sleep(time.Millisecond)
			}
			lastFrameCount = frameCount
		}
	}()

	go func() {
		log.Debug().Msg("starting show sample getter")
		defer log.Debug().Msg("stopped show sample getter")

		for {
			select {
			case <-ctx.Done():
				return
			case sample := <-channel:
				show.AddSample(sample)
			}
		}
	}()

	cmd.Metadata["show id"] = idString
	m.mapSource(cmd)

	cmd.Metadata["show cmd"] = "set params"
	m.showCmd(cmd)
}

func (m *StreamManager) mapSource(cmd *message.Cmd) {
	source := cmd.Metadata["source"]
	if len(source) == 0 {
		return
	}

	idString, ok := cmd.Metadata["show id"]
	if !ok {
		return
	}
	showId, err := uuid.Parse(idString)
	if err != nil {
		return
	}
	if _, ok := m.showInfo[showId]; !ok {
		return
	}
	for _, source := range strings.Split(source, ",") {
		sourceInfo := m.GetSourceInfo(strings.TrimSpace(source))

		mapped := false
		for _, thisId := range sourceInfo.ShowIds {
			if thisId == showId {
				mapped = true
				break
			}
		}
		if !mapped {
			sourceInfo.ShowIds = append(sourceInfo.ShowIds, showId)
		}
	}
}

func (m *StreamManager) rmShow(cmd *message.Cmd) {
	var showId uuid.UUID
	if idString, ok := cmd.Metadata["show id"]; ok {
		showId, _ = uuid.Parse(idString)
		if info, ok := m.showInfo[showId]; ok {
			info.Cancel()
			delete(m.showInfo, showId)
		}
	}

	for _, sourceInfo := range m.sourceInfo {
		list := sourceInfo.ShowIds
		tmp := list[:0]
		for i := range list {
			if list[i] != showId {
				tmp = append(tmp, list[i])
			}
		}
		sourceInfo.ShowIds = tmp
	}
}

func (m *StreamManager) rmAllShows(*message.Cmd) {
	for _, info := range m.showInfo {
		info.Cancel()
	}

	m.showInfo = make(map[uuid.UUID]ShowInfo)
	for _, sourceInfo := range m.sourceInfo {
		sourceInfo.ShowIds = nil
	}
}

func (m *StreamManager) showCmd(cmd *message.Cmd) {
	idString, ok := cmd.Metadata["show id"]
	if !ok {
		return
	}
	showId, _ := uuid.Parse(idString)
	info, ok := m.showInfo[showId]
	if !ok {
		return
	}

	showCmd := &message.Cmd{
		Command:  cmd.Metadata["show cmd"],
		Metadata: make(map[string]string),
	}
	for k, v := range cmd.Metadata {
		switch k {
		case "show id", "show cmd", "type", "source", "period":
		default:
			showCmd.Metadata[k] = v
		}
	}
	if e, ok := info.Show.(message.Executer); ok {
		if err := e.Execute(showCmd); err != nil {
			m.Log.Error().Err(err).Str("show", idString).Msg("show command failed")
		}
	}
}

func (m *StreamManager) pubAllShows(*message.Cmd) {
	for _, info := range m.showInfo {
		info.Show.UpdateFrameCount()
	}
}

func (m *StreamManager) listAllSources(*message.Cmd) {
	for source, sourceInfo := range m.sourceInfo {
		if sourceInfo.CompatShows != nil {
			m.listSource(source, sourceInfo)
		}
	}
}

func (m *StreamManager) listSource(source string, sourceInfo *SourceInfo) {
	compat := make([]string, len(sourceInfo.CompatShows))
	for i, showType := range sourceInfo.CompatShows {
		compat[i] = showType.String()
	}

	m.publish(&message.Msg{
		Type: "source announce",
		Metadata: map[string]string{
			"stream":       m.Name,
			"source":       source,
			"compat shows": strings.Join(compat, ", "),
			"type":         sourceInfo.Type.String(),
		},
	})
}

var RunDateFormat = "2006_Jan2_15_04_05_UTC"

func (m *StreamManager) startRun(cmd *message.Cmd) {
	urlString := strings.TrimSuffix(cmd.Metadata["url"], "/") + "/" + time.Now().UTC().Format(RunDateFormat) + ".proio"
	writer, err := data.GetWriter(m.ctx, urlString, cmd.Metadata["credentials"])
	if err != nil {
		m.Log.Error().Err(err).Msg("run not started")
		return
	}

	thisUrl, err := url.Parse(urlString)
	if err != nil {
		writer.Close()
		m.Log.Error().Err(err).Msg("run not started")
		return
	}
	m.runFilename = strings.TrimLeft(thisUrl.Path, "/")

	m.stopRun(cmd)
	runChannel := make(chan *data.Slice, 10000)
	m.runChannel = runChannel

	log := m.Log.With().Str("run", fmt.Sprintf("%v://%v/%v", thisUrl.Scheme, thisUrl.Host, m.runFilename)).Logger()
	log.Info().Msg("starting run")

	writer.SetCompression(proio.LZ4)
	delete(cmd.Metadata, "credentials")
	delete(cmd.Metadata, "url")
	for _, key := range []string{data.MetaRunID, data.MetaParams} {
		if value, ok := m.status.StringData[key]; ok {
			writer.PushMetadata(key, []byte(value))
		}
	}
	for key, value := range cmd.Metadata {
		writer.PushMetadata(key, []byte(value))
	}

	m.publishStatus("Run", m.runFilename)

	ctx, cancel := context.WithCancel(m.ctx)
	go func() {
		defer writer.Close()
		defer cancel()
		defer log.Info().Msg("stopping run")

		go func() {
			start := time.Now()
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				m.publish(&message.Msg{
					Type: "stream status",
					Metadata: map[string]string{
						"stream":   m.Name,
						"Run Time": fmt.Sprintf("%v", time.Since(start).Truncate(100*time.Millisecond)),
					},
				})
			}
		}()

		var (
			nWritten int
			failed   bool
		)
		for slice := range runChannel {
			if failed || slice.Err != nil || slice.Result == nil {
				continue
			}
			if err := writer.Push(data.ResultToEvent(slice.Result)); err != nil {
				log.Error().Err(err).Msg("run output failed")
				failed = true
				continue
			}
			nWritten++
		}
		log.Info().Int("written", nWritten).Msg("run complete")
	}()
}

func (m *StreamManager) stopRun(*message.Cmd) {
	if m.runChannel == nil {
		return
	}
	close(m.runChannel)
	m.runChannel = nil
}

func (m *StreamManager) pubRunMeta(*message.Cmd) {
	for _, key := range m.status.Keys {
		m.publish(&message.Msg{
			Type:     "stream status",
			Metadata: map[string]string{"stream": m.Name, key: m.status.StringData[key]},
		})
	}
}

func (m *StreamManager) pubDesc(*message.Cmd) {
	m.doPubDesc = true
}

// handleMetadata publishes the run ID and reduction parameters of the
// stream whenever they change.
func (m *StreamManager) handleMetadata(slice *data.Slice) {
	if slice.Metadata == nil {
		return
	}

	if runID, ok := slice.Metadata[data.MetaRunID]; ok && m.status.Changed("Run ID", string(runID)) {
		m.publishStatus("Run ID", string(runID))
		m.status.SetString(data.MetaRunID, string(runID))
	}

	params, ok := slice.Metadata[data.MetaParams]
	if ok && (m.doPubDesc || m.status.Changed(data.MetaParams, string(params))) {
		m.doPubDesc = false
		m.publishStatus(data.MetaParams, string(params))
	}
}
