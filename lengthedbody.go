/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package gowarc

import (
	"io"

	countingreader "github.com/nlnwa/gowarc/internal/countingreader"
)

// lengthedBody is a read-only view bounded by a declared byte count, backed
// by the shared cursor buffer and channel: reading past the declared length
// reports io.EOF even though the underlying stream has more data (the next
// record's header, or the trailing CRLF CRLF).
//
// This is a thin named wrapper around internal/countingreader.Reader, which
// already provides exactly this bounded-read behavior; every LengthedBody in
// this module (a record's raw content block, the pre-chunk-decode view of a
// chunked body) is built on it.
type lengthedBody struct {
	*countingreader.Reader
	declared int64
}

// newLengthedBody wraps r so that reads beyond declared bytes report io.EOF.
func newLengthedBody(r io.Reader, declared int64) *lengthedBody {
	return &lengthedBody{Reader: countingreader.NewLimited(r, declared), declared: declared}
}

// Remaining returns the number of bytes not yet read from the declared length.
func (b *lengthedBody) Remaining() int64 {
	return b.declared - b.Reader.N()
}

// drain discards any unread bytes up to the declared length, leaving the
// underlying channel positioned at the first byte after this body (the
// trailer, or the next record).
func (b *lengthedBody) drain() error {
	_, err := io.Copy(io.Discard, b)
	return err
}
