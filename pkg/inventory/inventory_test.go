package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryInventory_Tokens(t *testing.T) {
	inv := NewInMemoryInventory("band", nil)
	assert.False(t, inv.HasToken("a", "compass"))

	inv.Give("a", "compass")
	inv.Give("a", "compass")
	assert.True(t, inv.HasToken("a", "compass"))
	assert.True(t, inv.ConsumeToken("a", "compass"))
	assert.True(t, inv.ConsumeToken("a", "compass"))
	assert.False(t, inv.ConsumeToken("a", "compass"))
	assert.Empty(t, inv.Items("a"))
}

func TestInMemoryInventory_DisabledItems(t *testing.T) {
	inv := NewInMemoryInventory("band", func(item string) bool { return item != "stone" })
	inv.Give("a", "stone")
	assert.False(t, inv.HasToken("a", "stone"))
	assert.False(t, inv.ConsumeToken("a", "stone"))
	assert.Equal(t, map[string]int{"stone": 1}, inv.Items("a"))
}

func TestInMemoryInventory_ShareCode(t *testing.T) {
	inv := NewInMemoryInventory("band", nil)
	assert.False(t, inv.SetShareCode("a", "secret"))
	assert.Empty(t, inv.ShareCode("a"))

	inv.Give("a", "band")
	assert.True(t, inv.SetShareCode("a", "secret"))
	assert.Equal(t, "secret", inv.ShareCode("a"))

	inv.ConsumeToken("a", "band")
	assert.Empty(t, inv.ShareCode("a"), "code goes with the band")

	inv.Give("a", "band")
	assert.Empty(t, inv.ShareCode("a"))
}
