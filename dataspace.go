package esdm

import (
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/hypercube"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
)

// Dataspace describes how a region of a dataset is laid out in a buffer.
//
// Element at absolute coordinate x lives at byte offset
//
//	ElementSize * sum((x[i] - Offset[i]) * Stride[i])
//
// Stride is counted in elements. A nil Stride means contiguous row-major
// layout, with the last dimension varying fastest.
type Dataspace struct {
	Offset      []int64
	Size        []int64
	Stride      []int64
	ElementSize int64
}

// NewDataspace creates a contiguous dataspace for the region
// [offset, offset+size).
//
// Returns ErrInvalidArgument if the slices differ in length, are empty, hold
// a negative size or the element size is not positive.
func NewDataspace(offset, size []int64, elementSize int64) (*Dataspace, error) {
	s := &Dataspace{
		Offset:      clone(offset),
		Size:        clone(size),
		ElementSize: elementSize,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Dataspace) validate() error {
	if len(s.Size) == 0 {
		return fmt.Errorf("%w: dataspace has no dimensions", ErrInvalidArgument)
	}
	if len(s.Offset) != len(s.Size) {
		return fmt.Errorf("%w: offset has %d dims, size has %d dims", ErrInvalidArgument, len(s.Offset), len(s.Size))
	}
	if s.Stride != nil && len(s.Stride) != len(s.Size) {
		return fmt.Errorf("%w: stride has %d dims, size has %d dims", ErrInvalidArgument, len(s.Stride), len(s.Size))
	}
	if s.ElementSize <= 0 {
		return fmt.Errorf("%w: element size must be positive, got %d", ErrInvalidArgument, s.ElementSize)
	}
	for i, n := range s.Size {
		if n < 0 {
			return fmt.Errorf("%w: dimension %d has negative size %d", ErrInvalidArgument, i, n)
		}
	}
	for i, n := range s.Stride {
		if n <= 0 {
			return fmt.Errorf("%w: dimension %d has non-positive stride %d", ErrInvalidArgument, i, n)
		}
	}
	if _, err := utils.CalculateByteSize(s.Size, s.ElementSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// Dims returns the number of dimensions.
func (s *Dataspace) Dims() int {
	return len(s.Size)
}

// Hypercube returns the region described by s.
func (s *Dataspace) Hypercube() Hypercube {
	return hypercube.FromOffsetSize(s.Offset, s.Size)
}

// ElementCount returns the number of elements in the region.
func (s *Dataspace) ElementCount() int64 {
	n := int64(1)
	for _, size := range s.Size {
		n *= size
	}
	return n
}

// Bytes returns the byte size of the region when stored contiguously.
func (s *Dataspace) Bytes() int64 {
	return s.ElementCount() * s.ElementSize
}

// strides returns the effective element strides.
func (s *Dataspace) strides() []int64 {
	if s.Stride != nil {
		return s.Stride
	}
	return contiguousStrides(s.Size)
}

func contiguousStrides(size []int64) []int64 {
	strides := make([]int64, len(size))
	step := int64(1)
	for i := len(size) - 1; i >= 0; i-- {
		strides[i] = step
		step *= size[i]
	}
	return strides
}

// span returns the number of buffer bytes the layout addresses.
func (s *Dataspace) span() int64 {
	strides := s.strides()
	last := int64(0)
	for i, n := range s.Size {
		if n == 0 {
			return 0
		}
		last += (n - 1) * strides[i]
	}
	return (last + 1) * s.ElementSize
}

// IsContiguous reports whether s uses the row-major layout without gaps.
func (s *Dataspace) IsContiguous() bool {
	if s.Stride == nil {
		return true
	}
	expected := contiguousStrides(s.Size)
	for i := range expected {
		// Strides of unit-length dimensions never take effect.
		if s.Size[i] > 1 && s.Stride[i] != expected[i] {
			return false
		}
	}
	return true
}

// Subspace returns a contiguous dataspace for cube, which must lie inside s.
func (s *Dataspace) Subspace(cube Hypercube) (*Dataspace, error) {
	if cube.Dims() != s.Dims() {
		return nil, fmt.Errorf("%w: subspace has %d dims, dataspace has %d", ErrInvalidArgument, cube.Dims(), s.Dims())
	}
	if !s.Hypercube().Contains(cube) {
		return nil, fmt.Errorf("%w: %s is not inside %s", ErrInvalidArgument, cube, s.Hypercube())
	}
	offset, size := cube.OffsetAndSize()
	return NewDataspace(offset, size, s.ElementSize)
}

// MakeContiguous returns a contiguous dataspace for the same region together
// with buf packed into it. Contiguous input is returned as-is, trimmed to the
// region's byte size.
func (s *Dataspace) MakeContiguous(buf []byte) (*Dataspace, []byte, error) {
	if int64(len(buf)) < s.span() {
		return nil, nil, fmt.Errorf("%w: buffer holds %d bytes, layout needs %d", ErrInvalidArgument, len(buf), s.span())
	}
	if s.IsContiguous() {
		return s, buf[:s.Bytes()], nil
	}
	dst, err := NewDataspace(s.Offset, s.Size, s.ElementSize)
	if err != nil {
		return nil, nil, err
	}
	packed := make([]byte, dst.Bytes())
	if err := CopyData(s, buf, dst, packed); err != nil {
		return nil, nil, err
	}
	return dst, packed, nil
}

// String returns the region and layout of s.
func (s *Dataspace) String() string {
	if s.Stride == nil {
		return fmt.Sprintf("%s x %dB", s.Hypercube(), s.ElementSize)
	}
	return fmt.Sprintf("%s x %dB stride %v", s.Hypercube(), s.ElementSize, s.Stride)
}

// CopyData copies the elements in the intersection of src and dst from
// srcBuf to dstBuf. Elements outside the intersection are left untouched.
// Disjoint dataspaces copy nothing.
//
// Runs that are contiguous in both layouts along the innermost dimension are
// copied in one go.
func CopyData(src *Dataspace, srcBuf []byte, dst *Dataspace, dstBuf []byte) error {
	if src == nil || dst == nil {
		panic("esdm: CopyData with nil dataspace")
	}
	if src.Dims() != dst.Dims() {
		return fmt.Errorf("%w: source has %d dims, destination has %d", ErrInvalidArgument, src.Dims(), dst.Dims())
	}
	if src.ElementSize != dst.ElementSize {
		return fmt.Errorf("%w: source elements are %d bytes, destination elements are %d",
			ErrInvalidArgument, src.ElementSize, dst.ElementSize)
	}
	if int64(len(srcBuf)) < src.span() {
		return fmt.Errorf("%w: source buffer holds %d bytes, layout needs %d", ErrInvalidArgument, len(srcBuf), src.span())
	}
	if int64(len(dstBuf)) < dst.span() {
		return fmt.Errorf("%w: destination buffer holds %d bytes, layout needs %d", ErrInvalidArgument, len(dstBuf), dst.span())
	}

	overlap, ok := hypercube.Intersection(src.Hypercube(), dst.Hypercube())
	if !ok {
		return nil
	}
	offset, size := overlap.OffsetAndSize()

	p := copyPlan{
		src:       srcBuf,
		dst:       dstBuf,
		srcStride: src.strides(),
		dstStride: dst.strides(),
		size:      size,
		elemSize:  src.ElementSize,
	}
	var srcOff, dstOff int64
	for i := range offset {
		srcOff += (offset[i] - src.Offset[i]) * p.srcStride[i]
		dstOff += (offset[i] - dst.Offset[i]) * p.dstStride[i]
	}
	p.run(0, srcOff, dstOff)
	return nil
}

// copyPlan walks the overlap of two layouts, offsets counted in elements.
type copyPlan struct {
	src, dst             []byte
	srcStride, dstStride []int64
	size                 []int64
	elemSize             int64
}

// run copies the sub-box starting at dimension dim.
//
// Base case: dim == len(size) copies a single element, or dim is the last
// dimension and both layouts are dense there, which copies the whole run.
func (p *copyPlan) run(dim int, srcOff, dstOff int64) {
	last := len(p.size) - 1
	if dim == len(p.size) || (dim == last && p.srcStride[last] == 1 && p.dstStride[last] == 1) {
		n := p.elemSize
		if dim == last {
			n *= p.size[last]
		}
		s := srcOff * p.elemSize
		d := dstOff * p.elemSize
		copy(p.dst[d:d+n], p.src[s:s+n])
		return
	}

	for i := int64(0); i < p.size[dim]; i++ {
		p.run(dim+1, srcOff+i*p.srcStride[dim], dstOff+i*p.dstStride[dim])
	}
}

func clone(values []int64) []int64 {
	if values == nil {
		return nil
	}
	out := make([]int64, len(values))
	copy(out, values)
	return out
}
