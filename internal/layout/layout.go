package layout

import (
	"fmt"
	"math"
)

const (
	// MaxPageSize is the largest page size the engine allocates.
	MaxPageSize uint32 = 8192
	// MaxOrder is the largest branching factor the engine supports.
	MaxOrder uint32 = 4096
)

// Layout holds the fixed field sizes of an index page, in bytes.
type Layout struct {
	HeaderSize     uint32
	KeySize        uint32
	FileOffsetSize uint32 // Zero if slots carry no file offset
	PageOffsetSize uint32 // Zero if slots carry no page offset
}

// DefaultLayout returns the engine's standard page layout: a 64 byte header,
// 16 byte keys and 4 byte file offsets.
func DefaultLayout() Layout {
	return Layout{
		HeaderSize:     64,
		KeySize:        16,
		FileOffsetSize: 4,
	}
}

// Optimum returns l without pointer fields, the reference layout that
// Efficiency compares against.
func (l Layout) Optimum() Layout {
	l.FileOffsetSize = 0
	l.PageOffsetSize = 0
	return l
}

// EntrySize returns the combined size of one key and one slot's pointers.
func (l Layout) EntrySize() uint64 {
	return uint64(l.KeySize) + uint64(l.FileOffsetSize) + uint64(l.PageOffsetSize)
}

// Used returns the bytes taken by keys and pointers at the given order,
// excluding the header. Order 0 uses nothing.
func (l Layout) Used(order uint32) uint64 {
	return l.used(uint64(order))
}

func (l Layout) used(d uint64) uint64 {
	if d == 0 {
		return 0
	}
	return uint64(l.KeySize)*(d-1) + uint64(l.FileOffsetSize)*d + uint64(l.PageOffsetSize)*d
}

func (l Layout) validate(pageSize uint32) error {
	if l.EntrySize() == 0 {
		return fmt.Errorf("%w: key and pointer sizes are all zero", ErrInvalidParameters)
	}
	if l.HeaderSize >= pageSize {
		return fmt.Errorf("%w: header of %d bytes leaves no room in a %d byte page",
			ErrInvalidParameters, l.HeaderSize, pageSize)
	}
	return nil
}

// MaxOrder returns the largest order d with Used(d) <= pageSize-HeaderSize.
//
// The search starts at three quarters of pageSize/EntrySize, which is close
// below the answer for realistic headers, and steps one order at a time.
func (l Layout) MaxOrder(pageSize uint32) (uint32, error) {
	if err := l.validate(pageSize); err != nil {
		return 0, err
	}
	usable := uint64(pageSize - l.HeaderSize)

	d := (uint64(pageSize) / l.EntrySize()) / 4 * 3
	if d == 0 {
		d = 1
	}
	// A large header can push the seed past the answer.
	for d > 1 && l.used(d) > usable {
		d--
	}
	if l.used(d) > usable {
		return 0, fmt.Errorf("%w: %d usable bytes cannot hold one %d byte slot",
			ErrInvalidParameters, usable, uint64(l.FileOffsetSize)+uint64(l.PageOffsetSize))
	}
	for l.used(d+1) <= usable {
		d++
	}

	if d > math.MaxUint32 {
		return 0, fmt.Errorf("%w: order %d overflows 32 bits", ErrInvalidParameters, d)
	}
	return uint32(d), nil
}

// PageSize returns the page size that holds exactly order slots:
// Used(order) + HeaderSize.
func (l Layout) PageSize(order uint32) (uint32, error) {
	if order == 0 {
		return 0, fmt.Errorf("%w: order must be at least 1", ErrInvalidParameters)
	}
	size := l.Used(order) + uint64(l.HeaderSize)
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("%w: page of %d bytes overflows 32 bits", ErrInvalidParameters, size)
	}
	return uint32(size), nil
}

// Fit describes how a layout fills one page at its maximum order.
type Fit struct {
	PageSize  uint32
	Usable    uint32 // PageSize - HeaderSize
	Used      uint32 // Used(Order)
	Order     uint32
	Unusable  uint32 // Usable - Used
	EntrySize uint64
}

// Fit computes the maximum order for pageSize and the space it leaves unused.
func (l Layout) Fit(pageSize uint32) (Fit, error) {
	order, err := l.MaxOrder(pageSize)
	if err != nil {
		return Fit{}, err
	}
	usable := pageSize - l.HeaderSize
	used := uint32(l.Used(order)) // <= usable
	return Fit{
		PageSize:  pageSize,
		Usable:    usable,
		Used:      used,
		Order:     order,
		Unusable:  usable - used,
		EntrySize: l.EntrySize(),
	}, nil
}

func (f Fit) String() string {
	return fmt.Sprintf("Space Available: %d, Space Used: %d, Elements Possible: %d, Unusable Space: %d, Total Element Size: %d",
		f.Usable, f.Used, f.Order, f.Unusable, f.EntrySize)
}
