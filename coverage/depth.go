// Package coverage derives per-bin and per-assembly mean read depth.
//
// Two mutually exclusive input modes exist: depth mode consumes the
// per-base depth tables produced by an external aligner/depth tool, and
// tabular mode reads a pre-computed Bin_id/Coverage sheet. Depth mode
// computes a length-weighted mean across all supplied read sets:
// contributions of independent depth files are summed in numerator and
// denominator separately.
package coverage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

// ContigDepth aggregates one contig of one depth table.
type ContigDepth struct {
	Total  float64 // sum of per-base depth
	Length int64   // maximum observed position
}

// Table is the per-contig aggregation of one depth file.
type Table map[string]ContigDepth

// ReadDepth streams tab-delimited (contig, position, depth) rows and
// aggregates per contig. The contig column may carry a FASTA header
// description; it is truncated at its first whitespace. Depth tables
// are position-ordered, but contig length is tracked as the maximum
// observed position anyway.
func ReadDepth(r io.Reader) (Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	table := Table{}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("depth line %d: want 3 columns, got %d", lineNo, len(fields))
		}
		contig := fields[0]
		if i := strings.IndexFunc(contig, unicode.IsSpace); i >= 0 {
			contig = contig[:i]
		}
		pos, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("depth line %d: bad position %q", lineNo, fields[1])
		}
		depth, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("depth line %d: bad depth %q", lineNo, fields[2])
		}
		cd := table[contig]
		cd.Total += depth
		if pos > cd.Length {
			cd.Length = pos
		}
		table[contig] = cd
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// ReadDepthFile reads one depth table from disk, transparently
// decompressing .gz files.
func ReadDepthFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	table, err := ReadDepth(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Result is the coverage outcome of a depth-mode computation.
type Result struct {
	// Bins maps bin id to length-weighted mean coverage.
	Bins map[string]float64
	// Assembly is the coverage over all bin contigs, or over every
	// contig when no bin restriction was given.
	Assembly float64
}

// Compute reads the given depth files in parallel (up to threads workers)
// and derives per-bin and assembly coverage. binContigs maps bin id to
// its contig names; a nil map yields only assembly coverage over all
// contigs.
func Compute(ctx context.Context, depthFiles []string, binContigs map[string][]string, threads int) (*Result, error) {
	if threads < 1 {
		threads = runtime.GOMAXPROCS(0)
	}

	tables := make([]Table, len(depthFiles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, path := range depthFiles {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ReadDepthFile(path)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Bins: map[string]float64{}}
	for id, contigs := range binContigs {
		res.Bins[id] = pooledCoverage(tables, contigs)
	}
	if binContigs == nil {
		res.Assembly = pooledCoverage(tables, nil)
	} else {
		var all []string
		seen := map[string]bool{}
		for _, contigs := range binContigs {
			for _, c := range contigs {
				if !seen[c] {
					seen[c] = true
					all = append(all, c)
				}
			}
		}
		res.Assembly = pooledCoverage(tables, all)
	}
	return res, nil
}

// pooledCoverage sums totals and lengths over the contig set across all
// tables. A nil contig set means every contig of every table. Empty
// assemblies yield 0.
func pooledCoverage(tables []Table, contigs []string) float64 {
	var total float64
	var length int64
	for _, t := range tables {
		if contigs == nil {
			for _, cd := range t {
				total += cd.Total
				length += cd.Length
			}
			continue
		}
		for _, c := range contigs {
			cd := t[c]
			total += cd.Total
			length += cd.Length
		}
	}
	if length == 0 {
		return 0
	}
	return total / float64(length)
}
