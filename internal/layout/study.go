package layout

import (
	"fmt"
	"io"
)

// Scenario is a named candidate layout.
type Scenario struct {
	Name   string
	Layout Layout
}

// StudyConfig describes a comparison of candidate layouts against a
// reference layout across several workload sizes.
type StudyConfig struct {
	// PageSize is the fixed page size for order comparisons.
	PageSize uint32
	// Order is the fixed order for page size comparisons.
	Order uint32
	// Optimum is the reference layout; usually a candidate's Optimum().
	Optimum   Layout
	Scenarios []Scenario
	// Value is the number of records assumed per page.
	Value   uint32
	Records []uint64
}

// DefaultStudyConfig compares the engine's pointer encodings against the
// 16/4/0 reference layout in 8 KiB pages.
func DefaultStudyConfig() StudyConfig {
	base := DefaultLayout()
	with := func(file, page uint32) Layout {
		l := base
		l.FileOffsetSize = file
		l.PageOffsetSize = page
		return l
	}
	return StudyConfig{
		PageSize: MaxPageSize,
		Order:    MaxOrder,
		Optimum:  base,
		Scenarios: []Scenario{
			{Name: "Minimum", Layout: with(4, 2)},
			{Name: "Minimum2", Layout: with(4, 3)},
			{Name: "Maximum", Layout: with(8, 4)},
			{Name: "Maximum2", Layout: with(8, 2)},
		},
		Value:   4096,
		Records: []uint64{100_000_000, 1_000_000_000, 10_000_000_000},
	}
}

// DefaultPageSizeStudyConfig compares the page size of a 4/4 pointer pair
// with a single 8 byte file offset at MaxOrder.
func DefaultPageSizeStudyConfig() StudyConfig {
	cfg := DefaultStudyConfig()
	cfg.Optimum.FileOffsetSize = 8
	cfg.Scenarios = []Scenario{{Name: "Page Size", Layout: Layout{
		HeaderSize:     cfg.Optimum.HeaderSize,
		KeySize:        cfg.Optimum.KeySize,
		FileOffsetSize: 4,
		PageOffsetSize: 4,
	}}}
	return cfg
}

// StudyRow holds the reports for one scenario.
type StudyRow struct {
	Scenario string
	// Size and OptimumSize are orders for CompareOrders and page sizes for
	// ComparePageSizes.
	Size        uint32
	OptimumSize uint32
	Reports     []Report
}

// CompareOrders computes each scenario's maximum order in cfg.PageSize and
// reports its efficiency against the optimum's maximum order.
func CompareOrders(cfg StudyConfig) ([]StudyRow, error) {
	optimum, err := cfg.Optimum.MaxOrder(cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("optimum: %w", err)
	}
	return compare(cfg, optimum, func(l Layout) (uint32, error) {
		return l.MaxOrder(cfg.PageSize)
	})
}

// ComparePageSizes computes the page size each scenario needs for cfg.Order
// slots and reports its efficiency against the optimum's page size.
func ComparePageSizes(cfg StudyConfig) ([]StudyRow, error) {
	optimum, err := cfg.Optimum.PageSize(cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("optimum: %w", err)
	}
	return compare(cfg, optimum, func(l Layout) (uint32, error) {
		return l.PageSize(cfg.Order)
	})
}

func compare(cfg StudyConfig, optimum uint32, size func(Layout) (uint32, error)) ([]StudyRow, error) {
	rows := make([]StudyRow, 0, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		n, err := size(sc.Layout)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}

		row := StudyRow{Scenario: sc.Name, Size: n, OptimumSize: optimum}
		for _, records := range cfg.Records {
			report, err := Efficiency(n, optimum, cfg.Value, records)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			row.Reports = append(row.Reports, report)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteStudy prints rows in the report format used by the planning tool.
func WriteStudy(w io.Writer, rows []StudyRow) error {
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s: (%d vs %d)\n", row.Scenario, row.Size, row.OptimumSize); err != nil {
			return err
		}
		for _, r := range row.Reports {
			if _, err := fmt.Fprintln(w, r); err != nil {
				return err
			}
		}
	}
	return nil
}
