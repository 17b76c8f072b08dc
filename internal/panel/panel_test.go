package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-viz/internal/catalog"
	"room-viz/internal/codec"
)

func raster(w, h int) *codec.Raster {
	pix := make([]byte, w*h*4)
	for i := range pix {
		pix[i] = 0xff
	}
	return &codec.Raster{Width: w, Height: h, Pix: pix}
}

func TestBuildEntries(t *testing.T) {
	tests := []struct {
		name  string
		tiles []catalog.Tile
		want  []Entry
	}{
		{
			name:  "no tiles",
			tiles: nil,
			want:  []Entry{},
		},
		{
			name: "missing image",
			tiles: []catalog.Tile{
				{ID: "tile2", ImageURL: "http://x/bad.jpg"},
			},
			want: []Entry{
				{Name: "tile2", MaterialURL: "http://x/bad.jpg"},
			},
		},
		{
			name: "order kept with mixed previews",
			tiles: []catalog.Tile{
				{ID: "oak", ImageURL: "http://x/oak.jpg", Image: raster(4, 2)},
				{ID: "tile2", ImageURL: "http://x/bad.jpg"},
				{ID: "", ImageURL: "http://x/anon.jpg", Image: raster(1, 1)},
			},
			want: []Entry{
				{Name: "oak", MaterialURL: "http://x/oak.jpg", HasPreview: true, Width: 4, Height: 2},
				{Name: "tile2", MaterialURL: "http://x/bad.jpg"},
				{Name: "", MaterialURL: "http://x/anon.jpg", HasPreview: true, Width: 1, Height: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEntries(tt.tiles, 64, nil)
			require.Len(t, got, len(tt.want))
			for i := range got {
				if tt.want[i].HasPreview {
					assert.True(t, strings.HasPrefix(got[i].Preview, "data:image/webp;base64,"))
				} else {
					assert.Empty(t, got[i].Preview)
				}
				got[i].Preview = ""
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoardApply(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	current := first
	var mu sync.Mutex
	b := NewBoard(func() uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		return current
	}, nil)

	var published [][]Entry
	publish := func(e []Entry) { published = append(published, e) }

	ok := b.Apply(catalog.MaterialsReady{Cycle: first, Tiles: []catalog.Tile{{ID: "a", ImageURL: "a"}}}, 0, publish)
	require.True(t, ok)
	assert.Equal(t, first, b.Cycle())

	mu.Lock()
	current = second
	mu.Unlock()

	ok = b.Apply(catalog.MaterialsReady{Cycle: second, Tiles: []catalog.Tile{}}, 0, publish)
	require.True(t, ok)

	ok = b.Apply(catalog.MaterialsReady{Cycle: first, Tiles: []catalog.Tile{{ID: "stale", ImageURL: "s"}}}, 0, publish)
	assert.False(t, ok)

	assert.Equal(t, second, b.Cycle())
	assert.Empty(t, b.Entries())
	_, err := b.Lookup("stale")
	assert.Error(t, err)
	require.Len(t, published, 2)
	assert.Empty(t, published[1])
}

func TestBoardLookupLastDuplicateWins(t *testing.T) {
	cycle := uuid.New()
	b := NewBoard(func() uuid.UUID { return cycle }, nil)

	b.Apply(catalog.MaterialsReady{Cycle: cycle, Tiles: []catalog.Tile{
		{ID: "dup", ImageURL: "first"},
		{ID: "dup", ImageURL: "second"},
	}}, 0, nil)

	entry, err := b.Lookup("dup")
	require.NoError(t, err)
	assert.Equal(t, "second", entry.MaterialURL)
	assert.Len(t, b.Entries(), 2)
}

type docFetcher map[string]string

func (f docFetcher) Get(_ context.Context, url string) ([]byte, error) {
	doc, ok := f[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(doc), nil
}

type nopDecoder struct{}

func (nopDecoder) Decode([]byte) (*codec.Raster, error) {
	return nil, errors.New("no images in this test")
}

func TestBoardDropsSupersededEventFromSlowListener(t *testing.T) {
	p := catalog.NewPipeline(docFetcher{
		"first":  `{"Tiles":[{"id":"old","baseColorUrl":"old.png"}]}`,
		"second": `{"Tiles":[]}`,
	}, nopDecoder{})
	b := NewBoard(p.Cycle, nil)

	entered := make(chan uuid.UUID, 2)
	release := make(chan struct{})
	results := make(chan bool, 2)
	var calls atomic.Int32
	p.OnMaterialsReady(func(ev catalog.MaterialsReady) {
		entered <- ev.Cycle
		if calls.Add(1) == 1 {
			<-release
		}
		results <- b.Apply(ev, 0, nil)
	})

	first := p.FetchCatalog(context.Background(), "first")
	select {
	case got := <-entered:
		require.Equal(t, first, got)
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never completed")
	}

	second := p.FetchCatalog(context.Background(), "second")
	select {
	case ok := <-results:
		assert.True(t, ok, "current cycle must apply")
	case <-time.After(2 * time.Second):
		t.Fatal("second cycle never completed")
	}
	assert.Equal(t, second, <-entered)

	close(release)
	select {
	case ok := <-results:
		assert.False(t, ok, "superseded cycle must be dropped")
	case <-time.After(2 * time.Second):
		t.Fatal("slow listener never returned")
	}

	assert.Equal(t, second, b.Cycle())
	assert.Empty(t, b.Entries())
}
