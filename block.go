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
	"errors"
	"io"
	"io/ioutil"
)

// Block is the interface used to represent the content of a WARC record as specified by the WARC specification:
// https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/#warc-record-content-block
//
// A Block might be cached or non-cached. Calling RawBytes or BlockDigest more than once will fail if the block is not
// cached.
//
// NOTE: Blocks are not required to be thread safe.
type Block interface {
	// RawBytes returns the bytes of the Block
	RawBytes() (io.Reader, error)
	BlockDigest() string
	IsCached() bool
	Cache() error
	Size() int64
}

// invalidatedBlock stands in for a stale record's Block, failing every
// method with the reason the record was invalidated rather than letting a
// caller silently read garbage off a buffer the reader has since advanced
// past.
type invalidatedBlock struct {
	err error
}

func (b *invalidatedBlock) RawBytes() (io.Reader, error) { return nil, b.err }
func (b *invalidatedBlock) BlockDigest() string          { return "" }
func (b *invalidatedBlock) IsCached() bool               { return false }
func (b *invalidatedBlock) Cache() error                 { return b.err }
func (b *invalidatedBlock) Size() int64                  { return 0 }

// PayloadBlock is a Block with a well defined payload.
//
// Ref: https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/#warc-record-payload
type PayloadBlock interface {
	Block
	PayloadBytes() (io.Reader, error)
	PayloadDigest() string
}

// genericBlock is used for any record whose content block is neither an
// embedded HTTP message, a revisit stub, nor a WarcFields table: its bytes
// pass through untouched, with only the digest computed as a side effect of
// reading them.
type genericBlock struct {
	opts        *warcRecordOptions
	rawBytes    io.Reader
	blockDigest *digest
	readOp      readOp
	cached      bool
}

func newGenericBlock(opts *warcRecordOptions, r io.Reader, blockDigest *digest) *genericBlock {
	return &genericBlock{opts: opts, rawBytes: r, blockDigest: blockDigest}
}

func (block *genericBlock) IsCached() bool {
	return block.cached
}

func (block *genericBlock) Cache() error {
	panic("implement me")
}

func (block *genericBlock) RawBytes() (io.Reader, error) {
	if block.readOp != opInitial {
		return nil, errContentReAccessed
	}
	block.readOp = opRawBytes

	block.rawBytes = io.TeeReader(block.rawBytes, block.blockDigest)
	return block.rawBytes, nil
}

func (block *genericBlock) BlockDigest() string {
	if block.readOp == opInitial {
		_, _ = block.RawBytes()
	}
	block.readOp = opRawBytes
	_, _ = io.Copy(ioutil.Discard, block.rawBytes)
	return block.blockDigest.format()
}

func (block *genericBlock) Size() int64 {
	block.BlockDigest()
	return block.blockDigest.count
}

// The readOp constants describe access to RawBytes() or PayloadBytes() on a PayloadBlock(),
// so that RawBytes and PayloadBytes() can check for invalid usage.
type readOp int8

const (
	opInitial      readOp = 0 // Initial value.
	opRawBytes     readOp = 1
	opPayloadBytes readOp = 2
)

var errContentReAccessed = errors.New("gowarc.Block: tried to access content twice")
