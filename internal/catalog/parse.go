package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire field names of the catalog document
const (
	TilesField     = "Tiles"
	IDField        = "id"
	BaseColorField = "baseColorUrl"
)

var (
	// ErrMalformedCatalog means the document is not a JSON object
	ErrMalformedCatalog = errors.New("malformed catalog")

	// ErrNoTilesArray means the document has no usable Tiles array
	ErrNoTilesArray = errors.New("catalog has no Tiles array")
)

// ParseCatalog extracts tile records from a catalog document.
//
// Unknown fields are ignored. Elements that are not objects, that lack a
// string id, or that lack a non-empty string baseColorUrl are skipped rather
// than failing the whole document. Field names are matched exactly.
func ParseCatalog(data []byte) ([]Tile, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformedCatalog)
	}

	raw, ok := root[TilesField]
	if !ok {
		return nil, ErrNoTilesArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, ErrNoTilesArray
	}

	tiles := make([]Tile, 0, len(elems))
	for _, elem := range elems {
		tile, ok := parseTile(elem)
		if !ok {
			continue
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}

func parseTile(elem json.RawMessage) (Tile, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
		return Tile{}, false
	}

	id, ok := stringField(obj, IDField)
	if !ok {
		return Tile{}, false
	}
	// An empty id is still a tile; an empty URL has nothing to fetch
	url, ok := stringField(obj, BaseColorField)
	if !ok || url == "" {
		return Tile{}, false
	}

	return Tile{ID: id, ImageURL: url}, true
}

func stringField(obj map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := obj[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
