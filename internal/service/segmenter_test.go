package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantdoctor/internal/config"
	"plantdoctor/internal/model"
)

func newTestSegmenter() *Segmenter {
	return NewSegmenter(config.DefaultLexicon())
}

func TestSegmenter_Segment(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []model.Clause
	}{
		{
			name:        "boundary word splits leaf and root",
			description: "Lá bị vàng, còn rễ thối",
			want: []model.Clause{
				{Text: "lá bị vàng", Anchor: model.PartLeaf},
				{Text: "rễ thối", Anchor: model.PartRoot},
			},
		},
		{
			name:        "comma before plant part opens a clause",
			description: "Lá bị vàng, rễ bị thối",
			want: []model.Clause{
				{Text: "lá bị vàng", Anchor: model.PartLeaf},
				{Text: "rễ bị thối", Anchor: model.PartRoot},
			},
		},
		{
			name:        "comma without plant part stays in clause",
			description: "Lá bị vàng, héo và khô",
			want: []model.Clause{
				{Text: "lá bị vàng, héo và khô", Anchor: model.PartLeaf},
			},
		},
		{
			name:        "sentence without keyword inherits previous anchor",
			description: "Thân cây nứt. Sau đó bị chảy nhựa",
			want: []model.Clause{
				{Text: "thân cây nứt", Anchor: model.PartStem},
				{Text: "sau đó bị chảy nhựa", Anchor: model.PartStem, Inherited: true},
			},
		},
		{
			name:        "no keyword at all defaults to general",
			description: "Cây bị héo rũ",
			want: []model.Clause{
				{Text: "cây bị héo rũ", Anchor: model.PartGeneral, Inherited: true},
			},
		},
		{
			name:        "multi-word boundary",
			description: "Lá có đốm nâu trong khi đó quả bị nứt",
			want: []model.Clause{
				{Text: "lá có đốm nâu", Anchor: model.PartLeaf},
				{Text: "quả bị nứt", Anchor: model.PartFruit},
			},
		},
		{
			name:        "semicolon splits",
			description: "Hoa rụng; quả non bị thối",
			want: []model.Clause{
				{Text: "hoa rụng", Anchor: model.PartFlower},
				{Text: "quả non bị thối", Anchor: model.PartFruit},
			},
		},
	}

	s := newTestSegmenter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Segment(tt.description))
		})
	}
}

func TestSegmenter_Segment_Empty(t *testing.T) {
	s := newTestSegmenter()
	assert.Empty(t, s.Segment(""))
	assert.Empty(t, s.Segment("   \n\t"))
}

func TestSegmenter_ResolveAnchor(t *testing.T) {
	tests := []struct {
		name       string
		clause     string
		wantPart   model.PlantPart
		wantLength int
		wantOK     bool
	}{
		{name: "earliest keyword wins", clause: "rễ thối và lá vàng", wantPart: model.PartRoot, wantLength: 2, wantOK: true},
		{name: "longer keyword wins at same position", clause: "lá non bị xoăn", wantPart: model.PartLeaf, wantLength: 6, wantOK: true},
		{name: "modifier overrides earlier keyword", clause: "quả có đốm xuất hiện trên lá", wantPart: model.PartLeaf, wantLength: 2, wantOK: true},
		{name: "modifier with root collar", clause: "vết thâm ở cổ rễ", wantPart: model.PartRoot, wantLength: 5, wantOK: true},
		{name: "keyword inside a longer word is ignored", clause: "cây hoang dại", wantOK: false},
		{name: "no keyword", clause: "bị héo", wantOK: false},
	}

	s := newTestSegmenter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.ResolveAnchor(tt.clause)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantPart, got.Part)
			assert.Equal(t, tt.wantLength, got.Length)
		})
	}
}
