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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
)

// Default digest algorithms. These cover every algorithm seen in the wild in
// existing WARC collections; this is the one file in the module that imports
// crypto/*, so that adding or dropping a supported algorithm never touches
// the digest machinery itself.
func init() {
	RegisterDigestAlgorithm("md5", md5.New, md5.Size)
	RegisterDigestAlgorithm("sha1", sha1.New, sha1.Size)
	RegisterDigestAlgorithm("sha256", sha256.New, sha256.Size)
	RegisterDigestAlgorithm("sha512", sha512.New, sha512.Size)
}
