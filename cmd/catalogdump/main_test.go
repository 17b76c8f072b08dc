package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "oak", sanitize("oak"))
	assert.Equal(t, "walnut_dark-2", sanitize("walnut dark-2"))
	assert.Equal(t, "___etc_passwd", sanitize("../etc/passwd"))
	assert.Equal(t, "tile", sanitize(""))
}
