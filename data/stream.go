// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

type StreamProcessor func(<-chan *Slice, chan<- *Slice)

type StreamOp struct {
	Description     string
	StreamProcessor StreamProcessor
	MaxSliceBuf     int
}

func (o StreamOp) GetDescription() string {
	return o.Description
}

func (o StreamOp) Run(input <-chan *Slice) <-chan *Slice {
	if o.MaxSliceBuf == 0 {
		o.MaxSliceBuf = *maxSliceBuf
	}

	output := make(chan *Slice, o.MaxSliceBuf)

	go func() {
		defer close(output)

		o.StreamProcessor(input, output)
	}()

	return output
}
