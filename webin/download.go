package webin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
)

// Version is the uploader release this tool is tested against.
const Version = "7.3.1"

// releaseURL is the download location for a pinned uploader release.
const releaseURL = "https://github.com/enasequence/webin-cli/releases/download/%s/webin-cli-%s.jar"

// DefaultJarName is the filename Download writes.
const DefaultJarName = "webin-cli-" + Version + ".jar"

// Download fetches the pinned uploader jar into dir and returns its
// path. An existing jar at the destination is reused.
func Download(ctx context.Context, dir string, progress bool) (string, error) {
	dest := filepath.Join(dir, DefaultJarName)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	url := fmt.Sprintf(releaseURL, Version, Version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download uploader: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download uploader: status %d from %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(dir, "webin-cli-*.jar.part")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	if progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading webin-cli")
		w = io.MultiWriter(tmp, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}
