/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package hpack

// HeaderList is an ordered sequence of header fields as they appeared on
// the wire. Repeated names are separate entries; the codec never joins or
// drops them.
type HeaderList []HeaderField

// CookieSeparator joins cookie crumbs back into a single logical value.
const CookieSeparator = "; "

// nulSeparator joins repeated non-cookie headers, matching the HTTP/2
// convention for representing repeated fields in a flat map.
const nulSeparator = "\x00"

// Coalesced returns a copy of l with repeated names joined into single
// entries: cookie crumbs with "; ", any other repeated name with a NUL
// separator. Order follows each name's first occurrence. This is a
// consumer-side policy, not a framing concern; the uncoalesced list is
// always available as-is.
func (l HeaderList) Coalesced() HeaderList {
	out := make(HeaderList, 0, len(l))
	pos := make(map[string]int, len(l))
	for _, f := range l {
		if i, ok := pos[f.Name]; ok {
			sep := nulSeparator
			if f.Name == "cookie" {
				sep = CookieSeparator
			}
			out[i].Value += sep + f.Value
			continue
		}
		pos[f.Name] = len(out)
		out = append(out, f)
	}
	return out
}
