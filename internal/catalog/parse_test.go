package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []Tile
		err  error
	}{
		{
			name: "two tiles",
			doc:  `{"Tiles":[{"id":"oak","baseColorUrl":"http://x/oak.jpg"},{"id":"tile2","baseColorUrl":"http://x/bad.jpg"}]}`,
			want: []Tile{
				{ID: "oak", ImageURL: "http://x/oak.jpg"},
				{ID: "tile2", ImageURL: "http://x/bad.jpg"},
			},
		},
		{
			name: "unknown fields ignored",
			doc:  `{"version":2,"Tiles":[{"id":"oak","baseColorUrl":"u","roughness":0.4}]}`,
			want: []Tile{{ID: "oak", ImageURL: "u"}},
		},
		{
			name: "malformed elements skipped",
			doc: `{"Tiles":[
				"oak",
				42,
				null,
				[],
				{"id":"no-url"},
				{"baseColorUrl":"no-id"},
				{"id":7,"baseColorUrl":"u"},
				{"id":"empty","baseColorUrl":""},
				{"ID":"case","BaseColorUrl":"u"},
				{"id":"ok","baseColorUrl":"u"}
			]}`,
			want: []Tile{{ID: "ok", ImageURL: "u"}},
		},
		{
			name: "empty id kept",
			doc:  `{"Tiles":[{"id":"","baseColorUrl":"http://x/a.jpg"},{"id":"b","baseColorUrl":"http://x/b.jpg"}]}`,
			want: []Tile{
				{ID: "", ImageURL: "http://x/a.jpg"},
				{ID: "b", ImageURL: "http://x/b.jpg"},
			},
		},
		{
			name: "duplicate ids kept",
			doc:  `{"Tiles":[{"id":"d","baseColorUrl":"a"},{"id":"d","baseColorUrl":"b"}]}`,
			want: []Tile{{ID: "d", ImageURL: "a"}, {ID: "d", ImageURL: "b"}},
		},
		{
			name: "empty array",
			doc:  `{"Tiles":[]}`,
			want: []Tile{},
		},
		{name: "not json", doc: `not json`, err: ErrMalformedCatalog},
		{name: "top level array", doc: `[{"id":"a","baseColorUrl":"b"}]`, err: ErrMalformedCatalog},
		{name: "null document", doc: `null`, err: ErrMalformedCatalog},
		{name: "missing Tiles", doc: `{"tiles":[]}`, err: ErrNoTilesArray},
		{name: "Tiles not array", doc: `{"Tiles":{"id":"a"}}`, err: ErrNoTilesArray},
		{name: "Tiles null", doc: `{"Tiles":null}`, err: ErrNoTilesArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCatalog([]byte(tt.doc))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
