package layout

import (
	"fmt"
	"strconv"
)

const gib = 1024 * 1024 * 1024

// Report is a storage estimate for one layout at one record count.
type Report struct {
	Records         uint64
	PageSize        uint32
	OptimumPageSize uint32
	Value           uint32

	Ratio       float64 // PageSize / OptimumPageSize
	Pages       float64 // Records / Value
	TotalSpace  float64 // Bytes
	WastedSpace float64 // Bytes, never negative
}

// Efficiency estimates the space used and wasted by storing records entries,
// value per page, in pages of pageSize bytes, against a reference layout of
// optimumPageSize bytes.
//
// This is a capacity-planning heuristic: it assumes every page packs exactly
// value records.
func Efficiency(pageSize, optimumPageSize, value uint32, records uint64) (Report, error) {
	switch {
	case pageSize == 0:
		return Report{}, fmt.Errorf("%w: page size must be positive", ErrInvalidParameters)
	case optimumPageSize == 0:
		return Report{}, fmt.Errorf("%w: optimum page size must be positive", ErrInvalidParameters)
	case value == 0:
		return Report{}, fmt.Errorf("%w: records per page must be positive", ErrInvalidParameters)
	}

	ratio := float64(pageSize) / float64(optimumPageSize)
	pages := float64(records) / float64(value)
	total := pages * float64(pageSize)
	wasted := (1 - ratio) * total
	if wasted < 0 {
		wasted = 0
	}

	return Report{
		Records:         records,
		PageSize:        pageSize,
		OptimumPageSize: optimumPageSize,
		Value:           value,
		Ratio:           ratio,
		Pages:           pages,
		TotalSpace:      total,
		WastedSpace:     wasted,
	}, nil
}

// TotalGB returns TotalSpace in GiB.
func (r Report) TotalGB() float64 {
	return r.TotalSpace / gib
}

// WastedGB returns WastedSpace in GiB.
func (r Report) WastedGB() float64 {
	return r.WastedSpace / gib
}

func (r Report) String() string {
	return fmt.Sprintf("# Records: %s, Total: %.2f GB, Wasted: %.2f GB, Efficiency: %.2f",
		FormatCount(r.Records), r.TotalGB(), r.WastedGB(), r.Ratio)
}

// FormatCount renders n with comma thousands separators.
func FormatCount(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}

	out := make([]byte, 0, len(s)+(len(s)-1)/3)
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out = append(out, s[:head]...)
	for i := head; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
