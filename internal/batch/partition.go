// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

// Span is a contiguous range of job indices [Start, End).
// Start and End are absolute job indices. Index counts chunks from the cursor the run started at,
// so the same Index can name different jobs in two runs of one checkpoint.
type Span struct {
	Index int // position of the chunk in this run
	Start int
	End   int
}

// Len returns the number of jobs in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Partition splits the jobs from cursor to total into ordered chunks of at most size jobs.
func Partition(cursor, total, size int) []Span {
	if size < 1 || cursor >= total {
		return nil
	}

	cursor = max(cursor, 0)
	spans := make([]Span, 0, (total-cursor+size-1)/size)

	for start := cursor; start < total; start += size {
		spans = append(spans, Span{
			Index: len(spans),
			Start: start,
			End:   min(start+size, total),
		})
	}

	return spans
}
