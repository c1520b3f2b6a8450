package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelKeySpacedAndConcatenatedAgree(t *testing.T) {
	assert.Equal(t, ModelKey("RTX 5070 Ti"), ModelKey("rtx5070ti"))
	assert.Equal(t, "5070 ti", ModelKey("rtx5070ti"))
	assert.Equal(t, ModelKey("RX 7800 XT"), ModelKey("rx7800xt"))
}

func TestModelKeyRemovesBrandTokens(t *testing.T) {
	assert.Equal(t, "5080", ModelKey("NVIDIA GeForce RTX 5080"))
	assert.Equal(t, "9070 xt", ModelKey("AMD Radeon RX 9070 XT"))
}

func TestModelKeyKeepsNonBrandWords(t *testing.T) {
	assert.Equal(t, "arc b 580", ModelKey("Arc B580"))
}

func TestModelKeyCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "5070 ti", ModelKey("  RTX   5070   Ti  "))
}

func TestModelKeyEmpty(t *testing.T) {
	assert.Equal(t, "", ModelKey(""))
	assert.Equal(t, "", ModelKey("RTX"))
}
