package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tsharp/kupier-btree/internal/layout"
	"github.com/tsharp/kupier-btree/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

var errUsage = errors.New("usage")

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "order":
		err = orderCmd(args[1:], stdout, stderr)
	case "pagesize":
		err = pageSizeCmd(args[1:], stdout, stderr)
	case "efficiency":
		err = efficiencyCmd(args[1:], stdout, stderr)
	case "study":
		err = studyCmd(args[1:], stdout, stderr)
	case "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kupier-plan - page capacity planning

Usage:
  kupier-plan <command> [options]

Commands:
  order       Maximum order that fits a page
  pagesize    Page size needed for an order
  efficiency  Space estimate for a layout against its pointer-free optimum
  study       Compare the standard pointer encodings
  help        Show this help

Examples:
  kupier-plan order -page-size 8192 -file-offset 4 -page-offset 2
  kupier-plan pagesize -order 4096 -file-offset 4 -page-offset 4
  kupier-plan efficiency -page-offset 2 -records 100000000,1000000000
  kupier-plan study -by pagesize`)
}

// layoutFlags registers the page layout flags shared by every command.
type layoutFlags struct {
	header, key, fileOffset, pageOffset *uint
	logLevel                            *string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *layoutFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := layout.DefaultLayout()
	lf := &layoutFlags{
		header:     fs.Uint("header", uint(def.HeaderSize), "Page header size in bytes"),
		key:        fs.Uint("key", uint(def.KeySize), "Key size in bytes"),
		fileOffset: fs.Uint("file-offset", uint(def.FileOffsetSize), "File offset pointer size in bytes"),
		pageOffset: fs.Uint("page-offset", uint(def.PageOffsetSize), "Page offset pointer size in bytes"),
		logLevel:   fs.String("log-level", "warn", "Log level (debug, info, warn, error)"),
	}
	return fs, lf
}

func (lf *layoutFlags) layout() (layout.Layout, error) {
	var l layout.Layout
	for _, f := range []struct {
		name string
		v    uint
		dst  *uint32
	}{
		{"header", *lf.header, &l.HeaderSize},
		{"key", *lf.key, &l.KeySize},
		{"file-offset", *lf.fileOffset, &l.FileOffsetSize},
		{"page-offset", *lf.pageOffset, &l.PageOffsetSize},
	} {
		n, err := toUint32(f.name, f.v)
		if err != nil {
			return l, err
		}
		*f.dst = n
	}
	return l, nil
}

func (lf *layoutFlags) logger(stderr io.Writer, cmd string) logging.Logger {
	return logging.New(logging.Config{Level: *lf.logLevel, Output: stderr}).WithFields("cmd", cmd)
}

func toUint32(name string, v uint) (uint32, error) {
	if uint64(v) > uint64(^uint32(0)) {
		return 0, fmt.Errorf("-%s %d does not fit in 32 bits", name, v)
	}
	return uint32(v), nil
}

func parseRecords(s string) ([]uint64, error) {
	var out []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.ReplaceAll(strings.TrimSpace(part), "_", "")
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record count %q: %w", part, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("no record counts given")
	}
	return out, nil
}

func orderCmd(args []string, stdout, stderr io.Writer) error {
	fs, lf := newFlagSet("order", stderr)
	pageSize := fs.Uint("page-size", uint(layout.MaxPageSize), "Page size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := lf.layout()
	if err != nil {
		return err
	}
	p, err := toUint32("page-size", *pageSize)
	if err != nil {
		return err
	}

	log := lf.logger(stderr, "order")
	log.Debug("computing max order", "page_size", p, "layout", fmt.Sprintf("%+v", l))

	fit, err := l.Fit(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, fit)
	return nil
}

func pageSizeCmd(args []string, stdout, stderr io.Writer) error {
	fs, lf := newFlagSet("pagesize", stderr)
	order := fs.Uint("order", uint(layout.MaxOrder), "Desired order")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := lf.layout()
	if err != nil {
		return err
	}
	d, err := toUint32("order", *order)
	if err != nil {
		return err
	}

	lf.logger(stderr, "pagesize").Debug("computing page size", "order", d)

	size, err := l.PageSize(d)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Page Size: %d\n", size)
	return nil
}

func efficiencyCmd(args []string, stdout, stderr io.Writer) error {
	fs, lf := newFlagSet("efficiency", stderr)
	pageSize := fs.Uint("page-size", uint(layout.MaxPageSize), "Page size in bytes")
	value := fs.Uint("value", 4096, "Records per page")
	records := fs.String("records", "100000000,1000000000,10000000000", "Comma-separated record counts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := lf.layout()
	if err != nil {
		return err
	}
	p, err := toUint32("page-size", *pageSize)
	if err != nil {
		return err
	}
	v, err := toUint32("value", *value)
	if err != nil {
		return err
	}
	counts, err := parseRecords(*records)
	if err != nil {
		return err
	}

	cfg := layout.StudyConfig{
		PageSize:  p,
		Optimum:   l.Optimum(),
		Scenarios: []layout.Scenario{{Name: "Layout", Layout: l}},
		Value:     v,
		Records:   counts,
	}
	rows, err := layout.CompareOrders(cfg)
	if err != nil {
		return err
	}

	lf.logger(stderr, "efficiency").Info("efficiency computed", "order", rows[0].Size, "optimum", rows[0].OptimumSize)
	return layout.WriteStudy(stdout, rows)
}

func studyCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("study", flag.ContinueOnError)
	fs.SetOutput(stderr)
	by := fs.String("by", "order", "Compare by order (fixed page size) or pagesize (fixed order)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		rows []layout.StudyRow
		err  error
	)
	switch *by {
	case "order":
		rows, err = layout.CompareOrders(layout.DefaultStudyConfig())
	case "pagesize":
		rows, err = layout.ComparePageSizes(layout.DefaultPageSizeStudyConfig())
	default:
		fmt.Fprintf(stderr, "Error: -by must be order or pagesize, got %q\n", *by)
		return errUsage
	}
	if err != nil {
		return err
	}
	return layout.WriteStudy(stdout, rows)
}
