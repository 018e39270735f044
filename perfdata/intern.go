// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

// stringPool interns event names for one import. Counter maps key on
// the returned pointer, so per-sample accumulation compares one word
// instead of rehashing the name, and two spellings of the same name
// cannot split a counter.
type stringPool struct {
	m map[string]*string
}

func (p *stringPool) intern(s string) *string {
	if v, ok := p.m[s]; ok {
		return v
	}
	if p.m == nil {
		p.m = make(map[string]*string)
	}
	v := new(string)
	*v = s
	p.m[s] = v
	return v
}
