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
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	log "github.com/sirupsen/logrus"
	"io"
	"io/ioutil"
	"strconv"
)

// Unmarshaler reads successive WARC records from a shared, re-used buffer.
// A record returned by Unmarshal must be drained (via its Close, which the
// next Unmarshal call performs implicitly) before the underlying reader
// advances to the following record: this is what makes a record's Block
// invalid once a new record has been requested from the same Unmarshaler.
//
// Unmarshal's own int64 return is the number of bytes discarded resyncing
// past garbage before the record it found, relative to the start of that
// call — it has no notion of the caller's absolute stream position, since
// the *bufio.Reader it's handed may be positioned anywhere. A caller that
// needs a stable absolute offset (WarcFileReader does, for CaptureIndex)
// must track its own base offset and add this value to it.
type Unmarshaler interface {
	Unmarshal(b *bufio.Reader) (WarcRecord, int64, *Validation, error)
}

type unmarshaler struct {
	opts         *warcRecordOptions
	headerParser *headerParser
	generation   int64
	last         *warcRecord // most recently returned record, drained by the next Unmarshal call
}

func NewUnmarshaler(opts ...WarcRecordOption) *unmarshaler {
	o := newOptions(opts...)

	u := &unmarshaler{
		opts:         o,
		headerParser: &headerParser{o},
	}
	return u
}

func (u *unmarshaler) Unmarshal(b *bufio.Reader) (WarcRecord, int64, *Validation, error) {
	var r *bufio.Reader
	var offset int64
	validation := &Validation{}
	if u.last != nil {
		last := u.last
		u.last = nil
		if err := last.Close(); err != nil {
			return nil, offset, validation, err
		}
	}
	u.generation++

	magic, err := b.Peek(5)
	if err != nil {
		return nil, offset, validation, err
	}
	// Search for start of new record
	expectedRecordStartOffset := offset
	for !(magic[0] == 0x1f && magic[1] == 0x8b) && !bytes.Equal(magic, []byte("WARC/")) {
		if u.opts.errSyntax >= ErrFail {
			return nil, offset, validation, newSyntaxError("expected start of record", &position{})
		}
		if _, err = b.Discard(1); err != nil {
			return nil, offset, validation, err
		}
		offset++
		magic, err = b.Peek(5)
		if err != nil {
			return nil, offset, validation, err
		}
	}
	if u.opts.errSyntax >= ErrWarn && expectedRecordStartOffset != offset {
		validation.addError(newSyntaxError(
			fmt.Sprintf("expected start of record at offset: %d, but record was found at offset: %d",
				expectedRecordStartOffset, offset), &position{}))
	}

	var g *gzip.Reader
	if magic[0] == 0x1f && magic[1] == 0x8b {
		log.Debug("detected gzip record")
		g, err = gzip.NewReader(b)
		if err != nil {
			return nil, offset, validation, err
		}
		g.Multistream(false)
		r = bufio.NewReader(g)
	} else {
		r = b
	}

	// Find WARC version
	pos := &position{}
	l := make([]byte, 5)
	i, err := io.ReadFull(r, l)
	if err != nil {
		return nil, offset, validation, err
	}
	pos.incrLineNumber()
	if i != 5 || !bytes.Equal(l, []byte("WARC/")) {
		return nil, offset, validation, newSyntaxError("missing record version", pos)
	}
	l, err = r.ReadBytes('\n')
	if err != nil {
		return nil, offset, validation, err
	}
	if l[len(l)-2] != '\r' {
		switch u.opts.errSyntax {
		case ErrWarn:
			validation.addError(newSyntaxError(fmt.Sprintf("missing carriage return on line '%s'", bytes.Trim(l, sphtcrlf)), pos))
		case ErrFail:
			return nil, offset, validation, newSyntaxError(fmt.Sprintf("missing carriage return on line '%s'", bytes.Trim(l, sphtcrlf)), pos)
		}
	}
	version, err := u.resolveRecordVersion(string(bytes.Trim(l, sphtcrlf)), validation)
	if err != nil {
		return nil, offset, validation, err
	}

	// Parse WARC header
	wf, err := u.headerParser.Parse(r, validation, pos)
	if err != nil {
		return nil, offset, validation, err
	}
	rt, err := validateHeader(wf, version, validation, u.opts)
	if err != nil {
		return nil, offset, validation, err
	}

	record := &warcRecord{
		opts:       u.opts,
		version:    version,
		headers:    wf,
		recordType: rt,
		block:      nil,
		closer:     nil,
		reader:     u,
		generation: u.generation,
	}

	length, _ := strconv.ParseInt(record.headers.Get(ContentLength), 10, 64)

	// Adding 4 bytes to length to include the end of record marker (\r\n\r\n)
	// TODO: validate that record ends with correct marker
	c2 := newLengthedBody(r, length+4)
	record.closer = func() error {
		_, err := io.Copy(ioutil.Discard, c2)
		if g != nil {
			g.Close()
		}
		return err
	}

	err = record.parseBlock(bufio.NewReader(c2), validation)
	u.last = record

	return record, offset, validation, err
}

func (u *unmarshaler) resolveRecordVersion(s string, validation *Validation) (*WarcVersion, error) {
	switch s {
	case V1_0.txt:
		return V1_0, nil
	case V1_1.txt:
		return V1_1, nil
	default:
		switch u.opts.errSpec {
		case ErrWarn:
			validation.addError(fmt.Errorf("unsupported WARC version: %v", s))
			return &WarcVersion{txt: s}, nil
		case ErrFail:
			return nil, fmt.Errorf("unsupported WARC version: %v", s)
		default:
			return &WarcVersion{txt: s}, nil
		}
	}
}
