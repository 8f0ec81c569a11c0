// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gobuffalo/packr"
)

var PresetBox = packr.NewBox("../presets")

var presetMutex sync.RWMutex
var presets map[string]Params

func loadPresets() error {
	presetMutex.Lock()
	defer presetMutex.Unlock()
	if presets != nil {
		return nil
	}

	loaded := make(map[string]Params)
	for _, name := range PresetBox.List() {
		if !strings.HasSuffix(name, ".yaml") {
			continue
		}
		raw, err := PresetBox.Find(name)
		if err != nil {
			return err
		}
		p, err := LoadParams(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("preset %v: %w", name, err)
		}
		loaded[strings.TrimSuffix(name, ".yaml")] = p
	}
	presets = loaded
	return nil
}

// Preset returns the named built-in parameter set.
func Preset(name string) (Params, error) {
	if err := loadPresets(); err != nil {
		return DefaultParams(), err
	}
	presetMutex.RLock()
	defer presetMutex.RUnlock()
	p, ok := presets[name]
	if !ok {
		return DefaultParams(), fmt.Errorf("unknown preset %q", name)
	}
	return p, nil
}

func PresetNames() []string {
	if err := loadPresets(); err != nil {
		return nil
	}
	presetMutex.RLock()
	defer presetMutex.RUnlock()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
