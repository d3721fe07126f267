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

// Package timestamp converts between the WARC-Date (W3C-ISO8601) format used
// in record headers and the compact 14-digit format used in generated
// filenames.
package timestamp

import "time"

// gowarc14Layout is the compact "yyyyMMddHHmmss" timestamp used in generated
// WARC file names.
const gowarc14Layout = "20060102150405"

// To14 parses an W3C-ISO8601 timestamp and renders it in the 14-digit format.
func To14(iso8601 string) (string, error) {
	t, err := time.Parse(time.RFC3339, iso8601)
	if err != nil {
		return "", err
	}
	return UTC14(t), nil
}

// From14ToTime parses a 14-digit timestamp into a time.Time in UTC.
func From14ToTime(s string) (time.Time, error) {
	return time.ParseInLocation(gowarc14Layout, s, time.UTC)
}

// UTC normalizes t to UTC.
func UTC(t time.Time) time.Time {
	return t.UTC()
}

// UTC14 renders t, normalized to UTC, in the 14-digit format.
func UTC14(t time.Time) string {
	return t.UTC().Format(gowarc14Layout)
}

// UTCW3cIso8601 renders t, normalized to UTC, as a W3C-ISO8601 timestamp
// suitable for the WARC-Date header field.
func UTCW3cIso8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
