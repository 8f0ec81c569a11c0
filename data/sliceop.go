// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

type SliceProcessor func(*Slice)

// SliceOp applies SliceProcessor to up to Concurrency slices at a time and
// emits them in input order.
type SliceOp struct {
	Description    string
	SliceProcessor SliceProcessor
	Concurrency    int
	MaxSliceBuf    int
}

func (o SliceOp) GetDescription() string {
	return o.Description
}

func (o SliceOp) Run(input <-chan *Slice) <-chan *Slice {
	if o.Concurrency == 0 {
		o.Concurrency = *concurrency
	}

	if o.MaxSliceBuf == 0 {
		o.MaxSliceBuf = *maxSliceBuf
	}

	output := make(chan *Slice, o.MaxSliceBuf)

	go func() {
		defer close(output)

		procSlices := make(map[uint64]*Slice)
		doneSlices := make(map[uint64]*Slice)
		done := make(chan uint64)
		ackDone := func() {
			index := <-done
			doneSlices[index] = procSlices[index]
			delete(procSlices, index)
		}
		defer close(done)

		nRead := uint64(0)
		nWritten := uint64(0)
		writeOut := func() {
			for {
				if slice, ok := doneSlices[nWritten]; ok {
					output <- slice
					delete(doneSlices, nWritten)
					nWritten++
				} else {
					break
				}
			}
		}

		for slice := range input {
			go func(slice *Slice, done chan<- uint64, index uint64) {
				o.SliceProcessor(slice)
				done <- index
			}(slice, done, nRead)
			procSlices[nRead] = slice
			nRead++

			for len(procSlices) >= o.Concurrency || len(doneSlices) >= o.MaxSliceBuf {
				ackDone()
				writeOut()
			}
		}

		for len(procSlices) > 0 {
			ackDone()
		}
		writeOut()
	}()

	return output
}

// Op returns the pipeline stage reducing every slice that has no error
// yet.
func (r *Reducer) Op() SliceOp {
	return SliceOp{
		Description: "Reduces images to spectra",
		SliceProcessor: func(s *Slice) {
			if s.Err != nil || s.Image == nil {
				return
			}
			s.Result, s.Err = r.ReduceSlice(s)
		},
	}
}
