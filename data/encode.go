// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"errors"
	"fmt"

	"github.com/proio-org/go-proio"
	"google.golang.org/protobuf/types/known/structpb"
)

// Entry tags of a reduced event.
const (
	TagSpectrum = "Spectrum"
	TagSpots    = "Spots"
	TagSlope    = "Slope"
)

// Stream metadata keys.
const (
	MetaRunID  = "RunID"
	MetaParams = "Params"
	MetaStream = "Stream"
)

var ErrNoSpectrum = errors.New("data: event has no spectrum entry")

func numberList(v []float64) *structpb.Value {
	list := &structpb.ListValue{Values: make([]*structpb.Value, len(v))}
	for i, x := range v {
		list.Values[i] = structpb.NewNumberValue(x)
	}
	return structpb.NewListValue(list)
}

func stringList(v []string) *structpb.Value {
	list := &structpb.ListValue{Values: make([]*structpb.Value, len(v))}
	for i, x := range v {
		list.Values[i] = structpb.NewStringValue(x)
	}
	return structpb.NewListValue(list)
}

func toFloats(v *structpb.Value) []float64 {
	list := v.GetListValue().GetValues()
	out := make([]float64, len(list))
	for i, x := range list {
		out[i] = x.GetNumberValue()
	}
	return out
}

// ResultToEvent packs a result into a proio event: the spectrum columns and
// frame metadata in a Spectrum entry, the uncorrected centroids in a Spots
// entry and the slope fit, if any, in a Slope entry.
func ResultToEvent(res *Result) *proio.Event {
	event := proio.NewEvent()

	columns := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	if res.Columns != nil {
		for _, key := range res.Columns.Keys {
			columns.Fields[key] = numberList(res.Columns.Data[key])
		}
	}
	spectrum := &structpb.Struct{Fields: map[string]*structpb.Value{
		"source":   structpb.NewStringValue(res.Source),
		"frame":    structpb.NewNumberValue(float64(res.Frame)),
		"exposure": structpb.NewNumberValue(res.Exposure),
		"masked":   structpb.NewNumberValue(float64(res.Masked)),
		"columns":  structpb.NewStructValue(columns),
	}}
	if res.Columns != nil {
		spectrum.Fields["keys"] = stringList(res.Columns.Keys)
	}
	if res.Info != nil {
		names := make([]string, len(res.Info.Motors))
		values := make([]float64, len(res.Info.Motors))
		for i, m := range res.Info.Motors {
			names[i], values[i] = m.Name, m.Value
		}
		spectrum.Fields["motor_names"] = stringList(names)
		spectrum.Fields["motor_values"] = numberList(values)
		spectrum.Fields["energy"] = structpb.NewNumberValue(res.Info.PhotonEnergy())
		spectrum.Fields["beamline"] = structpb.NewStringValue(res.Info.Beamline)
		spectrum.Fields["date"] = structpb.NewStringValue(res.Info.Date)
	}
	event.AddEntry(TagSpectrum, spectrum)

	if res.SPC != nil {
		n := len(res.SPC.Spots)
		row, col := make([]float64, n), make([]float64, n)
		rowC, colC := make([]float64, n), make([]float64, n)
		intensity := make([]float64, n)
		for i, s := range res.SPC.Spots {
			row[i], col[i] = float64(s.Row), float64(s.Col)
			rowC[i], colC[i] = s.RowC, s.ColC
			intensity[i] = s.Intensity
		}
		event.AddEntry(TagSpots, &structpb.Struct{Fields: map[string]*structpb.Value{
			"row":        numberList(row),
			"col":        numberList(col),
			"row_c":      numberList(rowC),
			"col_c":      numberList(colC),
			"intensity":  numberList(intensity),
			"degenerate": structpb.NewBoolValue(res.SPC.Degenerate),
		}})
	}

	if res.Slope != nil {
		event.AddEntry(TagSlope, &structpb.Struct{Fields: map[string]*structpb.Value{
			"offset":    structpb.NewNumberValue(res.Slope.Offset),
			"slope":     structpb.NewNumberValue(res.Slope.Slope),
			"spots":     structpb.NewNumberValue(float64(res.Slope.Spots)),
			"converged": structpb.NewBoolValue(res.Slope.Result.Converged),
		}})
	}

	return event
}

// EventToResult unpacks an event written by ResultToEvent. Spot patches
// are not stored and come back nil.
func EventToResult(event *proio.Event) (*Result, error) {
	ids := event.TaggedEntries(TagSpectrum)
	if len(ids) == 0 {
		return nil, ErrNoSpectrum
	}
	spectrum, ok := event.GetEntry(ids[0]).(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("spectrum entry: %v", event.Err)
	}

	f := spectrum.GetFields()
	res := &Result{
		Source:   f["source"].GetStringValue(),
		Frame:    int(f["frame"].GetNumberValue()),
		Exposure: f["exposure"].GetNumberValue(),
		Masked:   int(f["masked"].GetNumberValue()),
		Columns:  &Columns{},
	}

	columns := f["columns"].GetStructValue().GetFields()
	for _, key := range f["keys"].GetListValue().GetValues() {
		name := key.GetStringValue()
		if err := res.Columns.Set(name, toFloats(columns[name])); err != nil {
			return nil, err
		}
	}

	if names, ok := f["motor_names"]; ok {
		info := &FrameInfo{
			Source:   res.Source,
			Energy:   f["energy"].GetNumberValue(),
			Beamline: f["beamline"].GetStringValue(),
			Date:     f["date"].GetStringValue(),
			Exposure: []float64{res.Exposure},
		}
		values := toFloats(f["motor_values"])
		for i, name := range names.GetListValue().GetValues() {
			if i < len(values) {
				info.Motors = append(info.Motors, Motor{Name: name.GetStringValue(), Value: values[i]})
			}
		}
		res.Info = info
	}

	if ids := event.TaggedEntries(TagSpots); len(ids) > 0 {
		if spots, ok := event.GetEntry(ids[0]).(*structpb.Struct); ok {
			sf := spots.GetFields()
			row, col := toFloats(sf["row"]), toFloats(sf["col"])
			rowC, colC := toFloats(sf["row_c"]), toFloats(sf["col_c"])
			intensity := toFloats(sf["intensity"])
			res.SPC = &SPCResult{Degenerate: sf["degenerate"].GetBoolValue()}
			for i := range row {
				res.SPC.Spots = append(res.SPC.Spots, Spot{
					Row:       int(row[i]),
					Col:       int(col[i]),
					RowC:      rowC[i],
					ColC:      colC[i],
					Intensity: intensity[i],
				})
			}
			res.SPC.Singles, _ = res.Columns.Get(ColSPCSingle)
			res.SPC.Doubles, _ = res.Columns.Get(ColSPCDouble)
			res.SPC.Total, _ = res.Columns.Get(ColSPC)
		}
	}

	if ids := event.TaggedEntries(TagSlope); len(ids) > 0 {
		if slope, ok := event.GetEntry(ids[0]).(*structpb.Struct); ok {
			sf := slope.GetFields()
			res.Slope = &SlopeFit{
				Offset: sf["offset"].GetNumberValue(),
				Slope:  sf["slope"].GetNumberValue(),
				Spots:  int(sf["spots"].GetNumberValue()),
			}
			res.Slope.Result.Converged = sf["converged"].GetBoolValue()
		}
	}

	return res, nil
}

// SliceFromEvent wraps the result decoded from event in a slice.
func SliceFromEvent(event *proio.Event) *Slice {
	res, err := EventToResult(event)
	s := &Slice{Metadata: event.Metadata, Result: res, Err: err}
	if res != nil {
		s.Source, s.Index, s.Exposure, s.Info = res.Source, res.Frame, res.Exposure, res.Info
	}
	return s
}

// EventSlices decodes a stream of reduced events.
func EventSlices(events <-chan *proio.Event, bufSize int) <-chan *Slice {
	output := make(chan *Slice, bufSize)
	go func() {
		defer close(output)
		for event := range events {
			output <- SliceFromEvent(event)
		}
	}()
	return output
}
