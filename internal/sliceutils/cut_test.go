package sliceutils_test

import (
	"testing"

	"github.com/habiliai/personachat/internal/sliceutils"
	"github.com/stretchr/testify/assert"
)

func TestLast(t *testing.T) {
	s := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{4, 5}, sliceutils.Last(s, 2))
	assert.Equal(t, s, sliceutils.Last(s, 0))
	assert.Equal(t, s, sliceutils.Last(s, 10))
	assert.Empty(t, sliceutils.Last([]int{}, 3))
}
