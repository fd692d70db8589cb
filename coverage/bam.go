package coverage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// depthTool is the external per-base depth generator.
const depthTool = "samtools"

// IsBAM reports whether path carries the accepted BAM extension.
func IsBAM(path string) bool {
	return strings.HasSuffix(path, ".bam") || strings.HasSuffix(path, ".BAM")
}

// MakeDepthFiles runs the external depth tool over each BAM and writes
// one depth table per input into dir. Invocations run in parallel with
// at most threads concurrent processes; each process gets
// max(1, threads/len(bams)) tool threads.
func MakeDepthFiles(ctx context.Context, bams []string, dir string, threads int) ([]string, error) {
	if len(bams) == 0 {
		return nil, fmt.Errorf("no BAM files given")
	}
	for _, bam := range bams {
		if !IsBAM(bam) {
			return nil, fmt.Errorf("%s: not a .bam/.BAM file", bam)
		}
	}
	if threads < 1 {
		threads = 1
	}
	perFile := threads / len(bams)
	if perFile < 1 {
		perFile = 1
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	outputs := make([]string, len(bams))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, bam := range bams {
		bam := bam
		out := filepath.Join(dir, strings.TrimSuffix(filepath.Base(bam), filepath.Ext(bam))+".depth")
		outputs[i] = out
		g.Go(func() error {
			return runDepthTool(ctx, bam, out, perFile)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func runDepthTool(ctx context.Context, bam, out string, toolThreads int) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, depthTool, "depth", "-a",
		"-@", strconv.Itoa(toolThreads), bam)
	cmd.Stdout = f
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		return fmt.Errorf("%s depth on %s: %w", depthTool, bam, err)
	}
	return f.Sync()
}
