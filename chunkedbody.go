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
	"errors"
	"io"
)

// chunkedBodyState is the decoder's position in the HTTP/1.1 chunked-transfer
// grammar (RFC 7230 §4.1).
type chunkedBodyState int8

const (
	chunkAwaitSize chunkedBodyState = iota
	chunkInData
	chunkAwaitChunkCRLF
	chunkAwaitTrailer
	chunkDone
	chunkError
)

// chunkedBody decodes an HTTP/1.1 "Transfer-Encoding: chunked" body read from
// a *bufio.Reader. It is layered directly over the same buffered reader the
// header parser and LengthedBody views share, so a chunk size line that
// arrived in the header parser's read-ahead is consumed from that buffer
// before anything more is pulled from the underlying channel.
//
// Chunk extensions (after ';' on a size line) and any trailer header lines
// after the last-chunk are read past their terminating CRLF and discarded;
// this core has no use for either.
type chunkedBody struct {
	r       *bufio.Reader
	state   chunkedBodyState
	remain  int64 // bytes left in the current chunk's data
	err     error
	sawChunk bool // a non-zero chunk size line has been read
}

func newChunkedBody(r *bufio.Reader) *chunkedBody {
	return &chunkedBody{r: r, state: chunkAwaitSize}
}

func (c *chunkedBody) Read(p []byte) (int, error) {
	if c.state == chunkError {
		return 0, c.err
	}
	if c.state == chunkDone {
		return 0, io.EOF
	}

	for c.state == chunkAwaitSize || c.state == chunkAwaitChunkCRLF || c.state == chunkAwaitTrailer {
		if err := c.advance(); err != nil {
			return 0, err
		}
	}

	if c.state == chunkDone {
		return 0, io.EOF
	}

	if int64(len(p)) > c.remain {
		p = p[:c.remain]
	}
	n, err := c.r.Read(p)
	c.remain -= int64(n)
	if err == io.EOF {
		if c.remain > 0 {
			return n, c.fail(newKindError(ErrUnexpectedEOF, "channel closed with %d bytes left in chunk", c.remain))
		}
	} else if err != nil {
		return n, c.fail(newKindError(ErrIO, "%v", err))
	}
	if c.remain == 0 {
		c.state = chunkAwaitChunkCRLF
	}
	return n, nil
}

// advance processes exactly one non-data state transition.
func (c *chunkedBody) advance() error {
	switch c.state {
	case chunkAwaitSize:
		onEOF := ErrParse
		if c.sawChunk {
			onEOF = ErrUnexpectedEOF
		}
		line, err := c.readLine(onEOF)
		if err != nil {
			return err
		}
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			line = line[:i] // discard chunk extensions
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return c.fail(newKindError(ErrParse, "empty chunk size line"))
		}
		size, err := parseHexUint(line)
		if err != nil {
			return c.fail(newKindError(ErrParse, "malformed chunk size %q: %v", line, err))
		}
		if size == 0 {
			c.state = chunkAwaitTrailer
			return nil
		}
		c.remain = size
		c.sawChunk = true
		c.state = chunkInData
		return nil

	case chunkAwaitChunkCRLF:
		line, err := c.readLine(ErrUnexpectedEOF)
		if err != nil {
			return err
		}
		if len(line) != 0 {
			return c.fail(newKindError(ErrParse, "malformed chunk: expected CRLF after chunk data"))
		}
		c.state = chunkAwaitSize
		return nil

	case chunkAwaitTrailer:
		line, err := c.readLine(ErrUnexpectedEOF)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			c.state = chunkDone
		}
		return nil
	}
	return nil
}

// readLine reads one CRLF-or-LF-terminated line, trailing line ending
// stripped. onEOF selects the error kind raised when the channel closes
// before a terminator is found: ErrParse when no chunk has been read yet
// (there was simply nothing to decode), ErrUnexpectedEOF once the decoder is
// mid-stream and a declared chunk or trailer was expected to follow.
func (c *chunkedBody) readLine(onEOF error) ([]byte, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			return nil, c.fail(newKindError(onEOF, "channel closed before chunk line terminator"))
		}
		return nil, c.fail(newKindError(ErrIO, "%v", err))
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (c *chunkedBody) fail(err error) error {
	c.state = chunkError
	c.err = err
	return err
}

func parseHexUint(b []byte) (int64, error) {
	var n int64
	if len(b) == 0 {
		return 0, errors.New("empty hex size")
	}
	for _, ch := range b {
		n <<= 4
		switch {
		case ch >= '0' && ch <= '9':
			n |= int64(ch - '0')
		case ch >= 'a' && ch <= 'f':
			n |= int64(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			n |= int64(ch-'A') + 10
		default:
			return 0, errors.New("invalid hex digit")
		}
	}
	return n, nil
}
