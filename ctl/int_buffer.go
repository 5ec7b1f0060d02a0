package ctl

//defaultBufferSize is the initial capacity of a freshly allocated IntBuffer.
const defaultBufferSize = 64

//IntBuffer is a growable slice of ints with an explicit logical size. The
//backing array grows in place and is never shrunk, so a single buffer can be
//reused across many split operations without reallocating.
type IntBuffer struct {
	Data []int
	Size int
}

//NewIntBuffer creates an empty buffer with the given capacity.
func NewIntBuffer(capacity int) *IntBuffer {
	return &IntBuffer{Data: make([]int, capacity)}
}

//Grow makes sure the buffer can hold at least n elements, preserving the
//current content.
func (b *IntBuffer) Grow(n int) {
	if n > len(b.Data) {
		fresh := make([]int, n)
		copy(fresh, b.Data[:b.Size])
		b.Data = fresh
	}
}

//Reset drops the logical content without releasing the storage.
func (b *IntBuffer) Reset() {
	b.Size = 0
}

//Append adds one value at the logical end of the buffer.
func (b *IntBuffer) Append(v int) {
	if b.Size == len(b.Data) {
		b.Grow(2*len(b.Data) + 1)
	}
	b.Data[b.Size] = v
	b.Size++
}

//Contents returns the live portion of the buffer.
func (b *IntBuffer) Contents() []int {
	return b.Data[:b.Size]
}

//MergeIndexBuffers merges the ascending sequence held in a with the ascending
//slice b into out, growing out as needed. The inputs come from different
//inverted values of the same feature and are therefore disjoint, so no
//duplicate handling happens here.
func MergeIndexBuffers(a *IntBuffer, b []int, out *IntBuffer) {
	total := a.Size + len(b)
	out.Grow(total)
	i, j, k := 0, 0, 0
	for i < a.Size && j < len(b) {
		if a.Data[i] < b[j] {
			out.Data[k] = a.Data[i]
			i++
		} else {
			out.Data[k] = b[j]
			j++
		}
		k++
	}
	for ; i < a.Size; i++ {
		out.Data[k] = a.Data[i]
		k++
	}
	for ; j < len(b); j++ {
		out.Data[k] = b[j]
		k++
	}
	out.Size = total
}

//MergeScratch is the reusable buffer triple used by one split operation: two
//ping-pong buffers that accumulate the left example-id set and one more for
//partitioning the feature columns.
type MergeScratch struct {
	first, second, third *IntBuffer
}

//NewMergeScratch allocates a scratch triple with the default capacity.
func NewMergeScratch() *MergeScratch {
	return &MergeScratch{
		first:  NewIntBuffer(defaultBufferSize),
		second: NewIntBuffer(defaultBufferSize),
		third:  NewIntBuffer(defaultBufferSize),
	}
}
