package catalog

import "room-viz/internal/codec"

// Tile is one material offering from the catalog
type Tile struct {
	ID       string
	ImageURL string

	// Image stays nil until its fetch and decode succeed, and forever if
	// either fails
	Image *codec.Raster
}

// HasImage reports whether the tile's swatch resolved
func (t Tile) HasImage() bool {
	return t.Image != nil
}

// tileKey correlates an image sub-operation with the tile entries it feeds
type tileKey struct {
	id  string
	url string
}

func (t Tile) key() tileKey {
	return tileKey{id: t.ID, url: t.ImageURL}
}
