package coverage

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// ContigNames lists, in file order, the contig names of a FASTA file.
// Names are truncated at the first whitespace, matching the depth tool's
// view of the same contigs.
func ContigNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var names []string
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, ">") {
			continue
		}
		fields := strings.Fields(line[1:])
		if len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	return names, sc.Err()
}

// BinContigs maps each bin id to its contig names.
func BinContigs(binFiles map[string]string) (map[string][]string, error) {
	out := make(map[string][]string, len(binFiles))
	for id, path := range binFiles {
		names, err := ContigNames(path)
		if err != nil {
			return nil, err
		}
		out[id] = names
	}
	return out, nil
}
