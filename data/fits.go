// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
)

// Header cards read into FrameInfo.
const (
	CardEnergy   = "ENERGY"
	CardExposure = "EXPTIME"
	CardPreset   = "PRESET"
	CardBeamline = "BEAMLINE"
	CardDate     = "DATE"
	CardMotors   = "MOTORS"
	CardMotorPos = "MOTPOS"
	CardRingCurr = "SRCUR"
	CardMirror   = "MIR"
	CardBZero    = "BZERO"
	CardBScale   = "BSCALE"
)

// ReadFrame reads the primary image of a FITS stream. NAXIS1 runs along
// the columns, NAXIS2 along the rows, and an optional NAXIS3 indexes
// the images.
func ReadFrame(r io.Reader, source string) (*Frame, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", source, err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%v: primary HDU is not an image", source)
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 2 || len(axes) > 3 {
		return nil, fmt.Errorf("%v: want a 2 or 3 axis image, got %d axes", source, len(axes))
	}

	values, err := readPixels(img, hdr.Bitpix(), axes)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", source, err)
	}

	get := func(name string) (interface{}, bool) {
		card := hdr.Get(name)
		if card == nil {
			return nil, false
		}
		return card.Value, true
	}
	if zero, ok := cardFloat(get, CardBZero); ok {
		scale, ok := cardFloat(get, CardBScale)
		if !ok {
			scale = 1
		}
		for i, v := range values {
			values[i] = zero + scale*v
		}
	}

	frame, err := frameFromPixels(axes, values)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", source, err)
	}
	frame.Info = infoFromCards(get, source, len(frame.Images))
	return frame, frame.Validate()
}

// LoadFrame opens a frame from a storage URL or local path.
func LoadFrame(ctx context.Context, urlString, credentials string) (*Frame, error) {
	rc, err := OpenSource(ctx, urlString, credentials)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadFrame(rc, urlString)
}

func readPixels(img fitsio.Image, bitpix int, axes []int) ([]float64, error) {
	n := 1
	for _, a := range axes {
		n *= a
	}
	out := make([]float64, n)

	switch bitpix {
	case 8:
		raw := make([]byte, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case -64:
		if err := img.Read(&out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	return out, nil
}

// frameFromPixels splits FITS ordered pixel values into row major images.
func frameFromPixels(axes []int, values []float64) (*Frame, error) {
	cols, rows, images := axes[0], axes[1], 1
	if len(axes) > 2 {
		images = axes[2]
	}
	size := rows * cols
	if size == 0 || images == 0 {
		return nil, ErrEmptyFrame
	}
	if len(values) != size*images {
		return nil, fmt.Errorf("%d pixels for %dx%dx%d image", len(values), rows, cols, images)
	}

	frame := &Frame{Images: make([]*mat.Dense, images)}
	for i := range frame.Images {
		frame.Images[i] = mat.NewDense(rows, cols, values[i*size:(i+1)*size])
	}
	return frame, nil
}

type cardGetter func(name string) (interface{}, bool)

func cardFloat(get cardGetter, name string) (float64, bool) {
	v, ok := get(name)
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func cardString(get cardGetter, name string) string {
	v, ok := get(name)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

func infoFromCards(get cardGetter, source string, images int) FrameInfo {
	info := FrameInfo{
		Source:   source,
		Beamline: cardString(get, CardBeamline),
		Date:     cardString(get, CardDate),
		Exposure: make([]float64, images),
	}
	if e, ok := cardFloat(get, CardEnergy); ok {
		info.Energy = e
	}

	exposure, ok := cardFloat(get, CardExposure)
	if !ok {
		exposure, _ = cardFloat(get, CardPreset)
	}
	for i := range info.Exposure {
		info.Exposure[i] = exposure
	}

	names := strings.Fields(cardString(get, CardMotors))
	positions := strings.Fields(cardString(get, CardMotorPos))
	for i, name := range names {
		if i >= len(positions) {
			break
		}
		if v, err := strconv.ParseFloat(positions[i], 64); err == nil {
			info.Motors = append(info.Motors, Motor{Name: name, Value: v})
		}
	}

	for card, counter := range map[string]string{CardRingCurr: CounterRingCurrent, CardMirror: CounterMirrorCurrent} {
		if v, ok := cardFloat(get, card); ok {
			if info.Counters == nil {
				info.Counters = make(map[string]float64)
			}
			info.Counters[counter] = v
		}
	}
	return info
}
