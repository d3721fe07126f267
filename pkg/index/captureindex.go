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

package index

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/nlnwa/gowarc"
	log "github.com/sirupsen/logrus"
)

// Capture is one indexed (response|resource) record: the target URI it
// captured, when, and where to find it again.
type Capture struct {
	UriKey string    `json:"uriKey"`
	Uri    string    `json:"uri"`
	Date   time.Time `json:"date"`
	File   string    `json:"file"`
	Offset int64     `json:"offset"`
}

// CaptureIndex is an ordered multiset of Captures keyed by (uri-key, date),
// backed by badger for on-disk, range-queryable storage. Entries are
// produced by indexing one or more WARC files in order with Index; Add
// inserts a single Capture directly for callers assembling an index from
// another source.
type CaptureIndex struct {
	db         *badger.DB
	seq        uint64
	entrypoint *Capture
}

// NewCaptureIndex opens (creating if necessary) a badger store rooted at
// dir for holding a CaptureIndex.
func NewCaptureIndex(dir string) (*CaptureIndex, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path.Join(dir, "capture-index"))
	opts.Logger = log.StandardLogger()
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &CaptureIndex{db: db}, nil
}

func (ci *CaptureIndex) Close() error {
	return ci.db.Close()
}

// Index streams every record of r, selecting response and resource records
// whose target URI scheme is http or https, and inserts a Capture for each
// at the reader's recorded position. The first selected record whose
// payload content-type (excluding parameters) is text/html becomes the
// entrypoint; later HTML captures do not displace it.
func (ci *CaptureIndex) Index(r *gowarc.WarcFileReader, file string) error {
	for {
		record, offset, _, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if record.Type()&(gowarc.Response|gowarc.Resource) == 0 {
			continue
		}

		targetURI := record.WarcHeader().GetId(gowarc.WarcTargetURI)
		scheme := schemeOf(targetURI)
		if scheme != "http" && scheme != "https" {
			continue
		}

		date, err := record.WarcHeader().GetTime(gowarc.WarcDate)
		if err != nil {
			continue
		}

		capture := &Capture{
			UriKey: targetURI,
			Uri:    targetURI,
			Date:   date,
			File:   file,
			Offset: offset,
		}
		if err := ci.Add(capture); err != nil {
			return err
		}

		if ci.entrypoint == nil && payloadType(record) == "text/html" {
			ci.entrypoint = capture
		}
	}
}

// Add inserts capture into the index.
func (ci *CaptureIndex) Add(capture *Capture) error {
	ci.seq++
	key := captureKey(capture.UriKey, capture.Date, ci.seq)
	value, err := json.Marshal(capture)
	if err != nil {
		return err
	}
	return ci.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Query returns every Capture whose uri-key equals uri's, in ascending
// (uri-key, date) order, using the sentinel MIN/MAX instant bounds from
// queryBounds to express the half-open-to-closed range as a badger prefix
// iteration.
func (ci *CaptureIndex) Query(uri string) ([]*Capture, error) {
	uri = strings.Trim(uri, "<>")
	lower, upper := queryBounds(uri)
	var result []*Capture
	err := ci.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(lower); it.ValidForPrefix(uriKeyPrefix(uri)); it.Next() {
			item := it.Item()
			if string(item.Key()) > string(upper) {
				break
			}
			var capture *Capture
			if err := item.Value(func(val []byte) error {
				capture = &Capture{}
				return json.Unmarshal(val, capture)
			}); err != nil {
				return err
			}
			result = append(result, capture)
		}
		return nil
	})
	return result, err
}

// Entrypoint returns the first HTML capture discovered while indexing, or
// nil if none was seen.
func (ci *CaptureIndex) Entrypoint() *Capture {
	return ci.entrypoint
}

// captureKey builds the ordered on-disk key for a Capture: uri-key, a NUL
// separator (uri-keys never contain NUL), the date as big-endian Unix nanos
// so lexicographic byte order matches chronological order, and finally an
// insertion sequence number breaking ties between same-instant captures in
// insertion order.
func captureKey(uriKey string, date time.Time, seq uint64) []byte {
	key := make([]byte, 0, len(uriKey)+1+8+8)
	key = append(key, uriKey...)
	key = append(key, 0)
	key = appendUint64(key, uint64(date.UnixNano()))
	key = appendUint64(key, seq)
	return key
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func uriKeyPrefix(uriKey string) []byte {
	return append([]byte(uriKey), 0)
}

// queryBounds returns the lower and upper key bounds for uri-key's range:
// the (uri_key, Instant.MIN) and (uri_key, Instant.MAX) sentinels from
// CaptureIndex.java's query(), translated to this package's on-disk key
// encoding.
func queryBounds(uriKey string) (lower, upper []byte) {
	lower = captureKey(uriKey, time.Unix(0, 0).UTC(), 0)
	upper = captureKey(uriKey, time.Unix(0, 1<<62).UTC(), ^uint64(0))
	return
}

func schemeOf(uri string) string {
	i := strings.Index(uri, ":")
	if i < 0 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

// payloadType returns record's payload content-type with any parameters
// stripped. A response record's payload type is its embedded HTTP
// response's Content-Type; a resource record's payload type is its own
// WARC Content-Type header.
func payloadType(record gowarc.WarcRecord) string {
	var raw string
	switch b := record.Block().(type) {
	case gowarc.HttpResponseBlock:
		raw = b.HttpHeader().Get("Content-Type")
	default:
		raw = record.WarcHeader().Get(gowarc.ContentType)
	}
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
