package serp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		mode     Mode
		want     string
	}{
		{"and", []string{"neural networks", "efficiency"}, ModeAnd, `"neural networks" AND "efficiency"`},
		{"or trims", []string{"  graph ", "transformer"}, ModeOr, `"graph" OR "transformer"`},
		{"lower-case and", []string{"a", "b"}, Mode("and"), `"a" AND "b"`},
		{"plain keeps whitespace", []string{" a", "b "}, ModePlain, " a b "},
		{"unknown mode is plain", []string{"x", "y"}, Mode("NOT"), "x y"},
		{"single keyword", []string{"ecology"}, ModeAnd, `"ecology"`},
		{"empty", nil, ModeAnd, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.keywords, tt.mode))
		})
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAnd, ParseMode("and"))
	assert.Equal(t, ModeOr, ParseMode(" Or "))
	assert.Equal(t, ModePlain, ParseMode(""))
	assert.Equal(t, ModePlain, ParseMode("xor"))
}

func TestPage_RecordsDropsUntitled(t *testing.T) {
	p := Page{Blocks: []Block{
		{Record: recordWithTitle("A")},
		{Record: recordWithTitle("")},
		{Record: recordWithTitle("B")},
		{Record: recordWithTitle("A")},
	}}

	recs := p.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "A", recs[0].Title)
	assert.Equal(t, "B", recs[1].Title)
	assert.Equal(t, "A", recs[2].Title, "duplicates are kept")
}
