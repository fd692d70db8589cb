package submit

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

// stageDir creates (or reuses) one artifact's staging directory.
func (o *Orchestrator) stageDir(parts ...string) (string, error) {
	dir := filepath.Join(append([]string{o.opts.StagingDir}, parts...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// stageGzip places src at dst in gzip form. Already compressed inputs
// are copied through unchanged; everything else is compressed with all
// available cores.
func stageGzip(src, dst string, threads int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(src), ".gz") {
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dst)
			return err
		}
		return out.Close()
	}

	zw := pgzip.NewWriter(out)
	if threads > 0 {
		zw.SetConcurrency(1<<20, threads)
	}
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
