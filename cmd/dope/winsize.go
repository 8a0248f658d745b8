package main

import (
	"fmt"
	"strconv"
	"strings"

	"9fans.net/dope/draw"
)

// parseGeometry parses a window geometry: WxH, WxH@X,Y, or X,Y,X2,Y2
// (the separator may also be a space). havemin reports whether the
// geometry placed the window.
func parseGeometry(s string) (r draw.Rectangle, havemin bool, err error) {
	orig := s
	oops := func() (draw.Rectangle, bool, error) {
		return draw.ZR, false, fmt.Errorf("bad syntax in window size '%s'", orig)
	}
	// num consumes a decimal number from the front of s.
	num := func() (int, bool) {
		i := 0
		for i < len(s) && '0' <= s[i] && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, false
		}
		n, err := strconv.Atoi(s[:i])
		s = s[i:]
		return n, err == nil
	}
	sep := func(seps string) (byte, bool) {
		if s == "" || !strings.ContainsRune(seps, rune(s[0])) {
			return 0, false
		}
		c := s[0]
		s = s[1:]
		return c, true
	}

	i, ok := num()
	if !ok {
		return oops()
	}
	if _, ok := sep("x"); ok {
		j, ok := num()
		if !ok || j == 0 || i == 0 {
			return oops()
		}
		r = draw.Rect(0, 0, i, j)
		if s == "" {
			return r, false, nil
		}
		if _, ok := sep("@"); !ok {
			return oops()
		}
		x, ok := num()
		if !ok {
			return oops()
		}
		if _, ok := sep(", "); !ok {
			return oops()
		}
		y, ok := num()
		if !ok || s != "" {
			return oops()
		}
		return r.Add(draw.Pt(x, y)), true, nil
	}

	c, ok := sep(", ")
	if !ok {
		return oops()
	}
	v := [4]int{i}
	for k := 1; k < 4; k++ {
		if k > 1 {
			if _, ok := sep(string(c)); !ok {
				return oops()
			}
		}
		if v[k], ok = num(); !ok {
			return oops()
		}
	}
	if s != "" {
		return oops()
	}
	r = draw.Rect(v[0], v[1], v[2], v[3])
	if r.Empty() {
		return oops()
	}
	return r, true, nil
}
