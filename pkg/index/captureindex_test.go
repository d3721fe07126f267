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
	"testing"
	"time"

	"github.com/nlnwa/gowarc"
	"github.com/stretchr/testify/assert"
)

func writeTestWarcFile(t *testing.T, dir string) string {
	t.Helper()

	nameGenerator := &gowarc.PatternNameGenerator{Prefix: "capture-", Directory: dir}
	w := gowarc.NewWarcFileWriter(
		gowarc.WithCompression(false),
		gowarc.WithFileNameGenerator(nameGenerator),
		gowarc.WithMaxFileSize(0),
		gowarc.WithMaxConcurrentWriters(1))
	defer func() { assert.NoError(t, w.Close()) }()

	// a PNG capture: selected for indexing, but not an entrypoint candidate.
	png := gowarc.NewRecordBuilder(gowarc.Response, gowarc.WithSpecViolationPolicy(gowarc.ErrIgnore))
	png.AddWarcHeader(gowarc.WarcTargetURI, "http://x/logo.png")
	png.AddWarcHeader(gowarc.WarcDate, "2020-01-01T00:00:00Z")
	png.AddWarcHeader(gowarc.ContentType, "application/http;msgtype=response")
	_, err := png.WriteString("HTTP/1.1 200 OK\r\nContent-Type: image/png\r\nContent-Length: 3\r\n\r\nabc")
	assert.NoError(t, err)
	pngRecord, _, err := png.Build()
	assert.NoError(t, err)
	resp := w.Write(pngRecord)[0]
	assert.NoError(t, resp.Err)
	fileName := resp.FileName

	// the first HTML capture: becomes the entrypoint.
	html := gowarc.NewRecordBuilder(gowarc.Response, gowarc.WithSpecViolationPolicy(gowarc.ErrIgnore))
	html.AddWarcHeader(gowarc.WarcTargetURI, "http://x/index.html")
	html.AddWarcHeader(gowarc.WarcDate, "2020-01-01T00:00:01Z")
	html.AddWarcHeader(gowarc.ContentType, "application/http;msgtype=response")
	_, err = html.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 4\r\n\r\n<h1>")
	assert.NoError(t, err)
	htmlRecord, _, err := html.Build()
	assert.NoError(t, err)
	assert.NoError(t, w.Write(htmlRecord)[0].Err)

	// a second HTML capture, same URI, later timestamp: must not displace the entrypoint.
	html2 := gowarc.NewRecordBuilder(gowarc.Response, gowarc.WithSpecViolationPolicy(gowarc.ErrIgnore))
	html2.AddWarcHeader(gowarc.WarcTargetURI, "http://x/index.html")
	html2.AddWarcHeader(gowarc.WarcDate, "2020-01-01T00:00:02Z")
	html2.AddWarcHeader(gowarc.ContentType, "application/http;msgtype=response")
	_, err = html2.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 4\r\n\r\n<h2>")
	assert.NoError(t, err)
	html2Record, _, err := html2.Build()
	assert.NoError(t, err)
	assert.NoError(t, w.Write(html2Record)[0].Err)

	// a resource record using a non-http(s) scheme: must be skipped.
	ftp := gowarc.NewRecordBuilder(gowarc.Resource, gowarc.WithSpecViolationPolicy(gowarc.ErrIgnore))
	ftp.AddWarcHeader(gowarc.WarcTargetURI, "ftp://x/ignored")
	ftp.AddWarcHeader(gowarc.WarcDate, "2020-01-01T00:00:03Z")
	ftp.AddWarcHeader(gowarc.ContentType, "application/octet-stream")
	_, err = ftp.WriteString("ignored")
	assert.NoError(t, err)
	ftpRecord, _, err := ftp.Build()
	assert.NoError(t, err)
	assert.NoError(t, w.Write(ftpRecord)[0].Err)

	return fileName
}

func TestCaptureIndex_Index(t *testing.T) {
	testdir := t.TempDir()

	fileName := writeTestWarcFile(t, testdir)

	reader, err := gowarc.NewWarcFileReader(fileName, 0, gowarc.WithSpecViolationPolicy(gowarc.ErrIgnore))
	assert.NoError(t, err)

	ci, err := NewCaptureIndex(testdir)
	assert.NoError(t, err)
	defer func() { assert.NoError(t, ci.Close()) }()

	assert.NoError(t, ci.Index(reader, fileName))

	// the ftp resource was skipped, but both PNG and HTML responses were kept.
	pngCaptures, err := ci.Query("http://x/logo.png")
	assert.NoError(t, err)
	assert.Len(t, pngCaptures, 1)

	htmlCaptures, err := ci.Query("http://x/index.html")
	assert.NoError(t, err)
	assert.Len(t, htmlCaptures, 2)
	assert.True(t, htmlCaptures[0].Date.Before(htmlCaptures[1].Date))

	ftpCaptures, err := ci.Query("ftp://x/ignored")
	assert.NoError(t, err)
	assert.Empty(t, ftpCaptures)

	// the entrypoint is the first HTML capture, unaffected by the later one.
	entry := ci.Entrypoint()
	assert.NotNil(t, entry)
	assert.Equal(t, "http://x/index.html", entry.Uri)
	assert.True(t, entry.Date.Equal(time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC)))
}

func TestCaptureIndex_QueryUnknownURI(t *testing.T) {
	testdir := t.TempDir()
	ci, err := NewCaptureIndex(testdir)
	assert.NoError(t, err)
	defer func() { assert.NoError(t, ci.Close()) }()

	captures, err := ci.Query("http://does/not/exist")
	assert.NoError(t, err)
	assert.Empty(t, captures)
}

// Given captures of the same URI at times T2, T1, T3 (T1<T2<T3) added in
// that order, Query returns them in T1, T2, T3 order: the index orders by
// (uri-key, date), not by insertion order.
func TestCaptureIndex_Add_queryOrdersByDate(t *testing.T) {
	testdir := t.TempDir()
	ci, err := NewCaptureIndex(testdir)
	assert.NoError(t, err)
	defer func() { assert.NoError(t, ci.Close()) }()

	t1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ci.Add(&Capture{UriKey: "http://a/", Uri: "http://a/", Date: t2, File: "f", Offset: 2}))
	assert.NoError(t, ci.Add(&Capture{UriKey: "http://a/", Uri: "http://a/", Date: t1, File: "f", Offset: 1}))
	assert.NoError(t, ci.Add(&Capture{UriKey: "http://a/", Uri: "http://a/", Date: t3, File: "f", Offset: 3}))

	captures, err := ci.Query("http://a/")
	assert.NoError(t, err)
	assert.Len(t, captures, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{captures[0].Offset, captures[1].Offset, captures[2].Offset})
}
