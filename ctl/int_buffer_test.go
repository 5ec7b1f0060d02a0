package ctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntBufferGrowPreservesContent(t *testing.T) {
	b := NewIntBuffer(2)
	b.Append(7)
	b.Append(11)
	b.Append(13)

	assert.Equal(t, []int{7, 11, 13}, b.Contents())
	assert.GreaterOrEqual(t, len(b.Data), 3)
}

func TestMergeIndexBuffers(t *testing.T) {
	a := NewIntBuffer(4)
	for _, v := range []int{1, 4, 9} {
		a.Append(v)
	}
	out := NewIntBuffer(0)

	MergeIndexBuffers(a, []int{2, 3, 12}, out)
	assert.Equal(t, []int{1, 2, 3, 4, 9, 12}, out.Contents())

	// empty sides
	out.Reset()
	MergeIndexBuffers(NewIntBuffer(0), []int{5, 6}, out)
	assert.Equal(t, []int{5, 6}, out.Contents())

	out.Reset()
	MergeIndexBuffers(a, nil, out)
	assert.Equal(t, []int{1, 4, 9}, out.Contents())
}

func TestMergePingPongAccumulation(t *testing.T) {
	// the calling pattern of split materialization: repeatedly merge entry
	// index lists into an accumulator, swapping buffers between rounds
	acc := NewIntBuffer(defaultBufferSize)
	buf := NewIntBuffer(defaultBufferSize)

	lists := [][]int{{3, 8}, {1, 5, 9}, {0, 2}, {4, 6, 7}}
	for _, list := range lists {
		MergeIndexBuffers(acc, list, buf)
		acc, buf = buf, acc
	}

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, acc.Contents())
}
