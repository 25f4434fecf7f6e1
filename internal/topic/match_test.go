package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsExactMatch(t *testing.T) {
	assert.True(t, Contains("the/topic", "the/topic"))
}

func TestContainsNoWildcardMismatch(t *testing.T) {
	assert.False(t, Contains("the/topic", "the/other"))
}

func TestContainsSingleWildcard(t *testing.T) {
	assert.True(t, Contains("the/topic/+/is/+/longer", "the/topic/something/is/alot/longer"))
	assert.False(t, Contains("the/topic/+", "the/topic"))
	assert.True(t, Contains("the/topic/+", "the/topic/"))
}

func TestContainsHashWildcardConsumesRemainder(t *testing.T) {
	assert.True(t, Contains("the/topic/#", "the/topic/something/is/alot/longer"))
	assert.False(t, Contains("the/topic/#", "the/topic"))
	assert.True(t, Contains("the/topic/#", "the/topic/"))
}

func TestContainsHashWildcardRequiresSegmentToConsume(t *testing.T) {
	assert.False(t, Contains("a/#", "a"))
}

func TestContainsDifferentLengthWithoutWildcardFails(t *testing.T) {
	assert.False(t, Contains("the/topic", "the/topic/extra"))
	assert.False(t, Contains("the/topic/extra", "the/topic"))
}

func TestContainsMultipleSingleWildcards(t *testing.T) {
	assert.True(t, Contains("+/+", "a/b"))
	assert.False(t, Contains("+/+", "a/b/c"))
}
