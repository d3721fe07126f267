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
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBufferReader hands back exactly the two buffers it was given, one per
// Read call, then signals EOF -- reproducing a channel that delivers a
// chunked body across two separate reads rather than in one shot.
type twoBufferReader struct {
	buffers [][]byte
}

func (r *twoBufferReader) Read(p []byte) (int, error) {
	if len(r.buffers) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.buffers[0])
	r.buffers[0] = r.buffers[0][n:]
	if len(r.buffers[0]) == 0 {
		r.buffers = r.buffers[1:]
	}
	return n, nil
}

func TestChunkedBody_decodeAcrossBuffers(t *testing.T) {
	src := &twoBufferReader{buffers: [][]byte{
		[]byte("3\r\nhel\r\n7\r\nlo "),
		[]byte("worl\r\n1\r\nd\r\n0\r\n\r\n"),
	}}
	cb := newChunkedBody(bufio.NewReader(src))

	got, err := io.ReadAll(cb)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	// the channel is fully drained: nothing is left unread past the
	// terminating chunk.
	n, err := src.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestChunkedBody_emptyInputIsParseError(t *testing.T) {
	cb := newChunkedBody(bufio.NewReader(strings.NewReader("")))
	_, err := cb.Read(make([]byte, 16))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestChunkedBody_truncatedMidChunkIsUnexpectedEOF(t *testing.T) {
	cb := newChunkedBody(bufio.NewReader(strings.NewReader("7\r\nhel")))
	_, err := io.ReadAll(cb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedEOF))
}

func TestChunkedBody_truncatedAfterChunkDataIsUnexpectedEOF(t *testing.T) {
	// the chunk's declared 3 bytes all arrived, but the channel closes
	// before the trailing CRLF that should follow the chunk data.
	cb := newChunkedBody(bufio.NewReader(strings.NewReader("3\r\nhel")))
	_, err := io.ReadAll(cb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedEOF))
}

func TestChunkedBody_singleChunkThenTerminator(t *testing.T) {
	cb := newChunkedBody(bufio.NewReader(strings.NewReader("5\r\nhello\r\n0\r\n\r\n")))
	got, err := io.ReadAll(cb)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
