// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

type SetStringer interface {
	SetString(key, value string)
}

// Status is the ordered set of stream status values last published, such
// as the run ID and the reduction parameters.
type Status struct {
	Keys       []string
	StringData map[string]string
}

func (s *Status) SetString(key, value string) {
	if s.StringData == nil {
		s.StringData = make(map[string]string)
	}
	if _, ok := s.StringData[key]; !ok {
		s.Keys = append(s.Keys, key)
	}
	s.StringData[key] = value
}

// Changed reports whether key is unset or holds a different value.
func (s *Status) Changed(key, value string) bool {
	old, ok := s.StringData[key]
	return !ok || old != value
}
