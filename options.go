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

import "github.com/nlnwa/gowarc/internal/diskbuffer"

// errorPolicy describes how a parser or validator reacts to a problem it can
// detect: ignore it, collect it as a warning, or fail outright.
type errorPolicy int8

const (
	// ErrIgnore ignores the given error.
	ErrIgnore errorPolicy = 0
	// ErrWarn ignores the given error but records it in the record's Validation.
	ErrWarn errorPolicy = 1
	// ErrFail fails immediately on the given error.
	ErrFail errorPolicy = 2
)

// warcRecordOptions configures parsing, validation and serialization of a WarcRecord.
type warcRecordOptions struct {
	warcVersion *WarcVersion

	errSyntax            errorPolicy // grammar violations: bad line endings, missing separators
	errSpec              errorPolicy // WARC spec violations: missing/illegal header fields
	errBlock             errorPolicy // errors while parsing a typed block (e.g. an embedded HTTP message)
	errUnknownRecordType errorPolicy // an unrecognized WARC-Type

	skipParseBlock bool // skip typed-block dispatch; always produce a genericBlock

	fixSyntaxErrors  bool // fix a missing trailing CRLF on an embedded HTTP header block
	fixContentLength bool // rewrite Content-Length to the observed size
	fixDigest        bool // rewrite an invalid digest header to the computed value
	addMissingDigest bool // add a digest header when a record has none

	fixWarcFieldsBlockErrors bool // rewrite a WarcFields block's content after fixing field errors

	defaultDigestAlgorithm string // algorithm assumed when a record carries no digest header
	defaultDigestEncoding  digestEncoding

	bufferOptions []diskbuffer.Option
}

func defaultRecordOptions() warcRecordOptions {
	return warcRecordOptions{
		warcVersion:            V1_1,
		errSyntax:              ErrIgnore,
		errSpec:                ErrIgnore,
		errBlock:               ErrWarn,
		errUnknownRecordType:   ErrIgnore,
		defaultDigestAlgorithm: "sha1",
		defaultDigestEncoding:  Base32,
	}
}

// WarcRecordOption configures parsing, validation and serialization of a WarcRecord.
type WarcRecordOption interface {
	apply(*warcRecordOptions)
}

// funcRecordOption wraps a function that modifies warcRecordOptions into an
// implementation of WarcRecordOption.
type funcRecordOption struct {
	f func(*warcRecordOptions)
}

func (fo *funcRecordOption) apply(o *warcRecordOptions) { fo.f(o) }

func newFuncRecordOption(f func(*warcRecordOptions)) *funcRecordOption {
	return &funcRecordOption{f: f}
}

// NewOptions resolves a set of WarcRecordOption into their effective
// configuration, applied on top of the defaults.
func NewOptions(opts ...WarcRecordOption) *warcRecordOptions {
	o := defaultRecordOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &o
}

// newOptions is an internal alias for NewOptions, used by constructors inside
// this package that don't want to expose the *warcRecordOptions type further.
func newOptions(opts ...WarcRecordOption) *warcRecordOptions {
	return NewOptions(opts...)
}

// WithVersion sets the WARC version to use for new records.
// Defaults to WARC/1.1.
func WithVersion(version *WarcVersion) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.warcVersion = version
	})
}

// WithSyntaxErrorPolicy sets the policy for grammar-level violations (bad
// line endings, missing separators). Defaults to ErrIgnore.
func WithSyntaxErrorPolicy(policy errorPolicy) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.errSyntax = policy
	})
}

// WithSpecViolationPolicy sets the policy for WARC spec violations (missing
// mandatory headers, fields illegal for the record's type). Defaults to ErrIgnore.
func WithSpecViolationPolicy(policy errorPolicy) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.errSpec = policy
	})
}

// WithBlockErrorPolicy sets the policy for errors while parsing a typed
// content block. Defaults to ErrWarn.
func WithBlockErrorPolicy(policy errorPolicy) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.errBlock = policy
	})
}

// WithUnknownRecordTypePolicy sets the policy for an unrecognized WARC-Type.
// Defaults to ErrIgnore: unknown types are accepted as a generic record.
func WithUnknownRecordTypePolicy(policy errorPolicy) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.errUnknownRecordType = policy
	})
}

// WithSkipParseBlock disables typed-block dispatch; every record gets a genericBlock.
func WithSkipParseBlock(skip bool) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.skipParseBlock = skip
	})
}

// WithFixSyntaxErrors enables correcting a missing trailing CRLF on an
// embedded HTTP header block.
func WithFixSyntaxErrors(fix bool) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.fixSyntaxErrors = fix
	})
}

// WithFixContentLength enables rewriting Content-Length to the observed size
// during ValidateDigest.
func WithFixContentLength(fix bool) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.fixContentLength = fix
	})
}

// WithFixDigest enables rewriting an invalid digest header to the computed
// value during ValidateDigest.
func WithFixDigest(fix bool) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.fixDigest = fix
	})
}

// WithAddMissingDigest enables adding a digest header when a record has none,
// during ValidateDigest.
func WithAddMissingDigest(add bool) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.addMissingDigest = add
	})
}

// WithFixWarcFieldsBlockErrors enables rewriting a WarcFields block's raw
// content after fixing field-level errors found while parsing it.
func WithFixWarcFieldsBlockErrors(fix bool) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.fixWarcFieldsBlockErrors = fix
	})
}

// WithDefaultDigestAlgorithm sets the digest algorithm assumed when a record
// carries no digest header at all. Defaults to "sha1".
func WithDefaultDigestAlgorithm(algorithm string) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.defaultDigestAlgorithm = algorithm
	})
}

// WithDefaultDigestEncoding sets the encoding assumed for a digest value whose
// length doesn't unambiguously identify it. Defaults to Base32.
func WithDefaultDigestEncoding(encoding digestEncoding) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.defaultDigestEncoding = encoding
	})
}

// WithBufferOptions configures the diskbuffer used to cache non-seekable payloads.
func WithBufferOptions(opts ...diskbuffer.Option) WarcRecordOption {
	return newFuncRecordOption(func(o *warcRecordOptions) {
		o.bufferOptions = opts
	})
}
