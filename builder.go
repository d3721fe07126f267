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
	"strconv"

	"github.com/google/uuid"
	"github.com/nlnwa/gowarc/internal/diskbuffer"
	"github.com/nlnwa/gowarc/internal/timestamp"
)

// WarcRecordBuilder accumulates a content block and a set of WARC header
// fields for a single record under construction.
//
// NewRecordBuilder prepopulates WARC-Record-ID, WARC-Type and WARC-Date;
// AddWarcHeader adds or overwrites further fields. Content is supplied
// through the embedded io.Writer/io.StringWriter/io.ReaderFrom before
// calling Build, which fixes up Content-Length (or rejects a caller-supplied
// value that disagrees with what was actually written) and dispatches the
// accumulated bytes to the same typed-block parsing record.go uses for
// records read off the wire.
type WarcRecordBuilder interface {
	io.Writer
	io.StringWriter
	io.ReaderFrom
	// AddWarcHeader adds name: value to the record's WARC header, replacing
	// any existing value for name.
	AddWarcHeader(name, value string)
	// Build finalizes the record. The returned Validation records any
	// ErrWarn-level problems found while validating the header; a
	// disagreement between a caller-supplied Content-Length and the actual
	// number of bytes written is always fatal, regardless of policy.
	Build() (WarcRecord, *Validation, error)
}

type recordBuilder struct {
	opts    *warcRecordOptions
	version *WarcVersion
	rt      RecordType
	headers *WarcFields
	content diskbuffer.Buffer
}

// NewRecordBuilder creates a WarcRecordBuilder for a record of the given type.
func NewRecordBuilder(rt RecordType, opts ...WarcRecordOption) WarcRecordBuilder {
	return newRecordBuilder(rt, opts...)
}

func newRecordBuilder(rt RecordType, opts ...WarcRecordOption) *recordBuilder {
	o := newOptions(opts...)
	rb := &recordBuilder{
		opts:    o,
		version: o.warcVersion,
		rt:      rt,
		headers: &WarcFields{},
		content: diskbuffer.New(o.bufferOptions...),
	}
	rb.AddWarcHeader(WarcRecordID, newRecordID())
	rb.AddWarcHeader(WarcType, rt.String())
	rb.AddWarcHeader(WarcDate, timestamp.UTCW3cIso8601(now()))
	return rb
}

// body sets Content-Type and copies r's bytes into the record's content
// buffer, so Content-Length at Build time reflects exactly what was written.
func (b *recordBuilder) body(contentType string, r io.Reader) error {
	b.AddWarcHeader(ContentType, contentType)
	_, err := b.ReadFrom(r)
	return err
}

// WarcinfoRecordBuilder builds a "warcinfo" record: metadata describing the
// records that follow it in the same WARC file.
type WarcinfoRecordBuilder struct{ *recordBuilder }

// NewWarcinfoRecord creates a builder for a "warcinfo" record.
func NewWarcinfoRecord(opts ...WarcRecordOption) *WarcinfoRecordBuilder {
	return &WarcinfoRecordBuilder{newRecordBuilder(Warcinfo, opts...)}
}

// Filename sets WARC-Filename, the name of the WARC file this warcinfo record describes.
func (b *WarcinfoRecordBuilder) Filename(name string) *WarcinfoRecordBuilder {
	b.AddWarcHeader(WarcFilename, name)
	return b
}

// Body sets the record's content block, typically application/warc-fields text.
func (b *WarcinfoRecordBuilder) Body(contentType string, r io.Reader) (*WarcinfoRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// ResponseRecordBuilder builds a "response" record: a captured response to a
// network request for a target URI.
type ResponseRecordBuilder struct{ *recordBuilder }

// NewResponseRecord creates a builder for a "response" record.
func NewResponseRecord(opts ...WarcRecordOption) *ResponseRecordBuilder {
	return &ResponseRecordBuilder{newRecordBuilder(Response, opts...)}
}

// TargetURI sets WARC-Target-URI, the URI this record was captured from.
func (b *ResponseRecordBuilder) TargetURI(uri string) *ResponseRecordBuilder {
	b.AddWarcHeader(WarcTargetURI, uri)
	return b
}

// IPAddress sets WARC-IP-Address, the IP of the server that served the content.
func (b *ResponseRecordBuilder) IPAddress(ip string) *ResponseRecordBuilder {
	b.AddWarcHeader(WarcIPAddress, ip)
	return b
}

// ConcurrentTo adds a WARC-Concurrent-To reference to a record captured in the same transaction.
func (b *ResponseRecordBuilder) ConcurrentTo(recordID string) *ResponseRecordBuilder {
	b.headers.Add(WarcConcurrentTo, recordID)
	return b
}

// PayloadDigest sets WARC-Payload-Digest.
func (b *ResponseRecordBuilder) PayloadDigest(digest string) *ResponseRecordBuilder {
	b.AddWarcHeader(WarcPayloadDigest, digest)
	return b
}

// IdentifiedPayloadType sets WARC-Identified-Payload-Type.
func (b *ResponseRecordBuilder) IdentifiedPayloadType(contentType string) *ResponseRecordBuilder {
	b.AddWarcHeader(WarcIdentifiedPayloadType, contentType)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID, linking to the warcinfo record for this file.
func (b *ResponseRecordBuilder) WarcinfoID(recordID string) *ResponseRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block, typically an embedded HTTP response.
func (b *ResponseRecordBuilder) Body(contentType string, r io.Reader) (*ResponseRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// ResourceRecordBuilder builds a "resource" record: a resource fetched
// without an enclosing network protocol response.
type ResourceRecordBuilder struct{ *recordBuilder }

// NewResourceRecord creates a builder for a "resource" record.
func NewResourceRecord(opts ...WarcRecordOption) *ResourceRecordBuilder {
	return &ResourceRecordBuilder{newRecordBuilder(Resource, opts...)}
}

// TargetURI sets WARC-Target-URI, the URI this record was captured from.
func (b *ResourceRecordBuilder) TargetURI(uri string) *ResourceRecordBuilder {
	b.AddWarcHeader(WarcTargetURI, uri)
	return b
}

// IPAddress sets WARC-IP-Address.
func (b *ResourceRecordBuilder) IPAddress(ip string) *ResourceRecordBuilder {
	b.AddWarcHeader(WarcIPAddress, ip)
	return b
}

// ConcurrentTo adds a WARC-Concurrent-To reference.
func (b *ResourceRecordBuilder) ConcurrentTo(recordID string) *ResourceRecordBuilder {
	b.headers.Add(WarcConcurrentTo, recordID)
	return b
}

// PayloadDigest sets WARC-Payload-Digest.
func (b *ResourceRecordBuilder) PayloadDigest(digest string) *ResourceRecordBuilder {
	b.AddWarcHeader(WarcPayloadDigest, digest)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID.
func (b *ResourceRecordBuilder) WarcinfoID(recordID string) *ResourceRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block.
func (b *ResourceRecordBuilder) Body(contentType string, r io.Reader) (*ResourceRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// RequestRecordBuilder builds a "request" record: a request issued to a
// target URI.
type RequestRecordBuilder struct{ *recordBuilder }

// NewRequestRecord creates a builder for a "request" record.
func NewRequestRecord(opts ...WarcRecordOption) *RequestRecordBuilder {
	return &RequestRecordBuilder{newRecordBuilder(Request, opts...)}
}

// TargetURI sets WARC-Target-URI, the URI this request targeted.
func (b *RequestRecordBuilder) TargetURI(uri string) *RequestRecordBuilder {
	b.AddWarcHeader(WarcTargetURI, uri)
	return b
}

// IPAddress sets WARC-IP-Address, the IP of the server the request was sent to.
func (b *RequestRecordBuilder) IPAddress(ip string) *RequestRecordBuilder {
	b.AddWarcHeader(WarcIPAddress, ip)
	return b
}

// ConcurrentTo adds a WARC-Concurrent-To reference, typically to the response
// this request produced.
func (b *RequestRecordBuilder) ConcurrentTo(recordID string) *RequestRecordBuilder {
	b.headers.Add(WarcConcurrentTo, recordID)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID.
func (b *RequestRecordBuilder) WarcinfoID(recordID string) *RequestRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block, typically an embedded HTTP request.
func (b *RequestRecordBuilder) Body(contentType string, r io.Reader) (*RequestRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// MetadataRecordBuilder builds a "metadata" record: content describing
// another record.
type MetadataRecordBuilder struct{ *recordBuilder }

// NewMetadataRecord creates a builder for a "metadata" record.
func NewMetadataRecord(opts ...WarcRecordOption) *MetadataRecordBuilder {
	return &MetadataRecordBuilder{newRecordBuilder(Metadata, opts...)}
}

// TargetURI sets WARC-Target-URI.
func (b *MetadataRecordBuilder) TargetURI(uri string) *MetadataRecordBuilder {
	b.AddWarcHeader(WarcTargetURI, uri)
	return b
}

// ConcurrentTo adds a WARC-Concurrent-To reference to the record this metadata describes.
func (b *MetadataRecordBuilder) ConcurrentTo(recordID string) *MetadataRecordBuilder {
	b.headers.Add(WarcConcurrentTo, recordID)
	return b
}

// RefersTo sets WARC-Refers-To, the record this metadata describes.
func (b *MetadataRecordBuilder) RefersTo(recordID string) *MetadataRecordBuilder {
	b.AddWarcHeader(WarcRefersTo, recordID)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID.
func (b *MetadataRecordBuilder) WarcinfoID(recordID string) *MetadataRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block, typically application/warc-fields text.
func (b *MetadataRecordBuilder) Body(contentType string, r io.Reader) (*MetadataRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// RevisitRecordBuilder builds a "revisit" record directly (as opposed to
// WarcRecord.ToRevisitRecord, which derives one from an existing record).
type RevisitRecordBuilder struct{ *recordBuilder }

// NewRevisitRecord creates a builder for a "revisit" record.
func NewRevisitRecord(opts ...WarcRecordOption) *RevisitRecordBuilder {
	return &RevisitRecordBuilder{newRecordBuilder(Revisit, opts...)}
}

// TargetURI sets WARC-Target-URI.
func (b *RevisitRecordBuilder) TargetURI(uri string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcTargetURI, uri)
	return b
}

// IPAddress sets WARC-IP-Address.
func (b *RevisitRecordBuilder) IPAddress(ip string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcIPAddress, ip)
	return b
}

// ConcurrentTo adds a WARC-Concurrent-To reference.
func (b *RevisitRecordBuilder) ConcurrentTo(recordID string) *RevisitRecordBuilder {
	b.headers.Add(WarcConcurrentTo, recordID)
	return b
}

// Profile sets WARC-Profile, one of the ProfileIdenticalPayloadDigestV1_x /
// ProfileServerNotModifiedV1_x constants.
func (b *RevisitRecordBuilder) Profile(profile string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcProfile, profile)
	return b
}

// RefersTo sets WARC-Refers-To, the record this one is a revisit of.
func (b *RevisitRecordBuilder) RefersTo(recordID string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcRefersTo, recordID)
	return b
}

// RefersToTargetURI sets WARC-Refers-To-Target-URI.
func (b *RevisitRecordBuilder) RefersToTargetURI(uri string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcRefersToTargetURI, uri)
	return b
}

// RefersToDate sets WARC-Refers-To-Date.
func (b *RevisitRecordBuilder) RefersToDate(date string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcRefersToDate, date)
	return b
}

// Truncated sets WARC-Truncated, the reason the content block was truncated (often "length").
func (b *RevisitRecordBuilder) Truncated(reason string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcTruncated, reason)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID.
func (b *RevisitRecordBuilder) WarcinfoID(recordID string) *RevisitRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block, typically the truncated headers of
// the response being revisited.
func (b *RevisitRecordBuilder) Body(contentType string, r io.Reader) (*RevisitRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// ConversionRecordBuilder builds a "conversion" record: content transformed
// from another record, e.g. after character-set normalization.
type ConversionRecordBuilder struct{ *recordBuilder }

// NewConversionRecord creates a builder for a "conversion" record.
func NewConversionRecord(opts ...WarcRecordOption) *ConversionRecordBuilder {
	return &ConversionRecordBuilder{newRecordBuilder(Conversion, opts...)}
}

// RefersTo sets WARC-Refers-To, the record this one was converted from.
func (b *ConversionRecordBuilder) RefersTo(recordID string) *ConversionRecordBuilder {
	b.AddWarcHeader(WarcRefersTo, recordID)
	return b
}

// IdentifiedPayloadType sets WARC-Identified-Payload-Type.
func (b *ConversionRecordBuilder) IdentifiedPayloadType(contentType string) *ConversionRecordBuilder {
	b.AddWarcHeader(WarcIdentifiedPayloadType, contentType)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID.
func (b *ConversionRecordBuilder) WarcinfoID(recordID string) *ConversionRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block.
func (b *ConversionRecordBuilder) Body(contentType string, r io.Reader) (*ConversionRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// ContinuationRecordBuilder builds a "continuation" record: a later segment
// of a record whose content block was split across several files.
type ContinuationRecordBuilder struct{ *recordBuilder }

// NewContinuationRecord creates a builder for a "continuation" record.
func NewContinuationRecord(opts ...WarcRecordOption) *ContinuationRecordBuilder {
	return &ContinuationRecordBuilder{newRecordBuilder(Continuation, opts...)}
}

// SegmentOriginID sets WARC-Segment-Origin-ID, the WARC-Record-ID of the first segment.
func (b *ContinuationRecordBuilder) SegmentOriginID(recordID string) *ContinuationRecordBuilder {
	b.AddWarcHeader(WarcSegmentOriginID, recordID)
	return b
}

// SegmentNumber sets WARC-Segment-Number, this segment's 1-based position.
func (b *ContinuationRecordBuilder) SegmentNumber(n int) *ContinuationRecordBuilder {
	b.AddWarcHeader(WarcSegmentNumber, strconv.Itoa(n))
	return b
}

// SegmentTotalLength sets WARC-Segment-Total-Length, the sum of all segments'
// content block lengths. Only valid on the last segment.
func (b *ContinuationRecordBuilder) SegmentTotalLength(n int64) *ContinuationRecordBuilder {
	b.AddWarcHeader(WarcSegmentTotalLength, strconv.FormatInt(n, 10))
	return b
}

// RefersTo sets WARC-Refers-To, the previous segment's WARC-Record-ID.
func (b *ContinuationRecordBuilder) RefersTo(recordID string) *ContinuationRecordBuilder {
	b.AddWarcHeader(WarcRefersTo, recordID)
	return b
}

// WarcinfoID sets WARC-Warcinfo-ID.
func (b *ContinuationRecordBuilder) WarcinfoID(recordID string) *ContinuationRecordBuilder {
	b.AddWarcHeader(WarcWarcinfoID, recordID)
	return b
}

// Body sets the record's content block: the continuation's share of the segmented payload.
func (b *ContinuationRecordBuilder) Body(contentType string, r io.Reader) (*ContinuationRecordBuilder, error) {
	return b, b.body(contentType, r)
}

// newRecordID mints a fresh WARC-Record-ID in the "<urn:uuid:...>" form
// required by the WARC header grammar.
func newRecordID() string {
	return "<urn:uuid:" + uuid.New().String() + ">"
}

func (b *recordBuilder) Write(p []byte) (int, error) {
	return b.content.Write(p)
}

func (b *recordBuilder) WriteString(s string) (int, error) {
	return b.content.WriteString(s)
}

func (b *recordBuilder) ReadFrom(r io.Reader) (int64, error) {
	return b.content.ReadFrom(r)
}

func (b *recordBuilder) AddWarcHeader(name, value string) {
	b.headers.Set(name, value)
}

func (b *recordBuilder) Build() (WarcRecord, *Validation, error) {
	validation := &Validation{}

	size := b.content.Size()
	if b.headers.Has(ContentLength) {
		declared := b.headers.Get(ContentLength)
		if declared != strconv.FormatInt(size, 10) {
			return nil, validation, newKindError(ErrInvariantViolation,
				"Content-Length header %q disagrees with %d bytes actually written", declared, size)
		}
	} else {
		b.headers.Set(ContentLength, strconv.FormatInt(size, 10))
	}

	rt, err := validateHeader(b.headers, b.version, validation, b.opts)
	if err != nil {
		return nil, validation, err
	}

	wr := &warcRecord{
		opts:       b.opts,
		version:    b.version,
		headers:    b.headers,
		recordType: rt,
		closer:     b.content.Close,
	}

	if err := wr.parseBlock(b.content, validation); err != nil {
		return nil, validation, err
	}

	return wr, validation, nil
}
