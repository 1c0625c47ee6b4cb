package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidItemType(t *testing.T) {
	assert.True(t, IsValidItemType("color"))
	assert.True(t, IsValidItemType("image"))
	assert.False(t, IsValidItemType("video"))
	assert.False(t, IsValidItemType(""))
}

func TestItem_UploadedFile(t *testing.T) {
	assert.Equal(t, "1700000000000-cake.png", (&Item{Type: ItemTypeImage, Value: "/uploads/1700000000000-cake.png"}).UploadedFile())
	assert.Equal(t, "cake.png", (&Item{Type: ItemTypeImage, Value: "cake.png"}).UploadedFile())
	assert.Equal(t, "", (&Item{Type: ItemTypeColor, Value: "#ff0000"}).UploadedFile())
	assert.Equal(t, "", (&Item{Type: ItemTypeImage}).UploadedFile())
}
