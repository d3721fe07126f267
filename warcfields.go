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
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

type nameValue struct {
	Name  string
	Value string
}

func (n *nameValue) String() string {
	return n.Name + ": " + n.Value
}

type WarcFields []*nameValue

// Get gets the first value associated with the given key. It is case insensitive.
// If the key doesn't exist or there are no values associated with the key, Get returns "".
// To access multiple values of a key, use GetAll.
func (wf *WarcFields) Get(name string) string {
	name, _ = normalizeName(name)
	for _, nv := range *wf {
		if nv.Name == name {
			return nv.Value
		}
	}
	return ""
}

func (wf *WarcFields) GetAll(name string) []string {
	name, _ = normalizeName(name)
	var result []string
	for _, nv := range *wf {
		if nv.Name == name {
			result = append(result, nv.Value)
		}
	}
	return result
}

func (wf *WarcFields) Has(name string) bool {
	name, _ = normalizeName(name)
	for _, nv := range *wf {
		if nv.Name == name {
			return true
		}
	}
	return false
}

// Add appends a name: value pair. name is canonicalized the same way a
// well-known WARC header field name is (e.g. "warc-record-id" becomes
// "WARC-Record-ID"); an unrecognized name is title-cased like an HTTP header.
func (wf *WarcFields) Add(name string, value string) {
	name, _ = normalizeName(name)
	*wf = append(*wf, &nameValue{Name: name, Value: value})
}

// AddId appends a name: <value> pair, wrapping value in angle brackets unless
// it is already wrapped. This is the format used by *-ID and *-URI fields.
func (wf *WarcFields) AddId(name string, value string) {
	wf.Add(name, wrapId(value))
}

func (wf *WarcFields) AddInt(name string, value int) {
	wf.Add(name, strconv.Itoa(value))
}

func (wf *WarcFields) AddInt64(name string, value int64) {
	wf.Add(name, strconv.FormatInt(value, 10))
}

func (wf *WarcFields) AddTime(name string, value time.Time) {
	wf.Add(name, value.UTC().Format(time.RFC3339))
}

// Set sets the value associated with name to value, replacing any existing
// values. If more than one value already exists, all but the first are
// removed.
func (wf *WarcFields) Set(name string, value string) {
	name, _ = normalizeName(name)
	isSet := false
	for idx, nv := range *wf {
		if nv.Name == name {
			if isSet {
				*wf = append((*wf)[:idx], (*wf)[idx+1:]...)
			} else {
				nv.Value = value
				isSet = true
			}
		}
	}
	if !isSet {
		*wf = append(*wf, &nameValue{Name: name, Value: value})
	}
}

// SetId sets name to <value>, wrapping value in angle brackets unless it is
// already wrapped.
func (wf *WarcFields) SetId(name string, value string) {
	wf.Set(name, wrapId(value))
}

func (wf *WarcFields) SetInt(name string, value int) {
	wf.Set(name, strconv.Itoa(value))
}

func (wf *WarcFields) SetInt64(name string, value int64) {
	wf.Set(name, strconv.FormatInt(value, 10))
}

func (wf *WarcFields) SetTime(name string, value time.Time) {
	wf.Set(name, value.UTC().Format(time.RFC3339))
}

func (wf *WarcFields) Delete(name string) {
	name, _ = normalizeName(name)
	var result []*nameValue
	for _, nv := range *wf {
		if nv.Name != name {
			result = append(result, nv)
		}
	}
	*wf = result
}

// GetId gets the first value associated with name, stripped of surrounding
// angle brackets, or "" if the key doesn't exist.
func (wf *WarcFields) GetId(name string) string {
	return strings.Trim(wf.Get(name), "<>")
}

// GetSole gets the single value associated with name. It returns
// ErrNotFound if name is absent, and ErrInvariantViolation if name has more
// than one value; a header legitimately meant to carry exactly one value
// (WARC-Record-ID, Content-Length, and similar) should be read with this
// rather than Get, which silently takes the first of however many there are.
func (wf *WarcFields) GetSole(name string) (string, error) {
	values := wf.GetAll(name)
	switch len(values) {
	case 0:
		return "", newKindError(ErrNotFound, "header %q not present", name)
	case 1:
		return values[0], nil
	default:
		return "", newKindError(ErrInvariantViolation, "header %q has %d values, expected exactly one", name, len(values))
	}
}

// GetInt gets the first value associated with name, parsed as an int. It is
// an error if the field is missing, empty, or not a valid integer.
func (wf *WarcFields) GetInt(name string) (int, error) {
	v := wf.Get(name)
	if v == "" {
		return 0, errors.New("field not found: " + name)
	}
	return strconv.Atoi(v)
}

// GetInt64 gets the first value associated with name, parsed as an int64. It
// is an error if the field is missing, empty, or not a valid integer.
func (wf *WarcFields) GetInt64(name string) (int64, error) {
	v := wf.Get(name)
	if v == "" {
		return 0, errors.New("field not found: " + name)
	}
	return strconv.ParseInt(v, 10, 64)
}

// GetTime gets the first value associated with name, parsed as an RFC 3339
// timestamp. It is an error if the field is missing, empty, or not a valid
// timestamp.
func (wf *WarcFields) GetTime(name string) (time.Time, error) {
	v := wf.Get(name)
	if v == "" {
		return time.Time{}, errors.New("field not found: " + name)
	}
	return time.Parse(time.RFC3339, v)
}

// wrapId wraps value in angle brackets unless it is already wrapped.
func wrapId(value string) string {
	if strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">") {
		return value
	}
	return "<" + value + ">"
}

func (wf *WarcFields) Sort() {
	sort.SliceStable(*wf, func(i, j int) bool {
		return (*wf)[i].Name < (*wf)[j].Name
	})
}

func (wf *WarcFields) Write(w io.Writer) (bytesWritten int64, err error) {
	var n int
	for _, field := range *wf {
		n, err = fmt.Fprintf(w, "%s: %s\r\n", field.Name, field.Value)
		bytesWritten += int64(n)
		if err != nil {
			return
		}
	}
	return
}

func (wf *WarcFields) String() string {
	sb := &strings.Builder{}
	if _, err := wf.Write(sb); err != nil {
		panic(err)
	}
	return sb.String()
}

func (wf WarcFields) clone() *WarcFields {
	r := WarcFields{}
	for _, p := range wf {
		v := *p
		v2 := v
		r = append(r, &v2)
	}
	return &r
}
