package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"9fans.net/dope/draw"
)

func TestParseGeometry(t *testing.T) {
	tests := []struct {
		in      string
		want    draw.Rectangle
		havemin bool
	}{
		{"800x600", draw.Rect(0, 0, 800, 600), false},
		{"800x600@10,20", draw.Rect(10, 20, 810, 620), true},
		{"800x600@10 20", draw.Rect(10, 20, 810, 620), true},
		{"10,20,110,220", draw.Rect(10, 20, 110, 220), true},
		{"10 20 110 220", draw.Rect(10, 20, 110, 220), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, havemin, err := parseGeometry(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
			assert.Equal(t, tt.havemin, havemin)
		})
	}
}

func TestParseGeometryErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"x600",
		"800x",
		"800x0",
		"800x600@",
		"800x600@10",
		"800x600@10,",
		"800x600@10,20z",
		"800*600",
		"10,20,110",
		"10,20 110,220",
		"10,20,5,5",
	} {
		_, _, err := parseGeometry(in)
		assert.Error(t, err, in)
	}
}
