package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// MaxDownload caps the size of a remote document.
const MaxDownload = 512 << 20

var errTooLarge = errors.New("document exceeds download limit")

// isRemote reports whether source is an http(s) URL.
func isRemote(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// fetched is a readable local copy of a source.
type fetched struct {
	path string
	// temp is set for downloads, which the caller must remove.
	temp bool
	// sum is the content hash of a download; empty for local files.
	sum string
}

// localPath turns source into a readable local file, downloading remote
// documents to a temporary file.
func (b *Backend) localPath(ctx context.Context, source string) (fetched, error) {
	if isRemote(source) {
		return b.download(ctx, source)
	}
	path := strings.TrimPrefix(source, "file://")
	fi, err := os.Stat(path)
	if err != nil {
		return fetched{}, err
	}
	if fi.IsDir() {
		return fetched{}, fmt.Errorf("%s is a directory", path)
	}
	return fetched{path: path}, nil
}

func (b *Backend) download(ctx context.Context, source string) (fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fetched{}, err
	}
	req.Header.Set("Accept", "application/pdf")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fetched{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fetched{}, fmt.Errorf("fetch %s: %s", source, resp.Status)
	}

	f, err := os.CreateTemp(b.TempDir, "flipbook-*.pdf")
	if err != nil {
		return fetched{}, err
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), io.LimitReader(resp.Body, MaxDownload+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxDownload {
		err = errTooLarge
	}
	if err != nil {
		os.Remove(f.Name())
		return fetched{}, fmt.Errorf("fetch %s: %w", source, err)
	}
	sum := hex.EncodeToString(h.Sum(nil)[:8])
	b.log().Debug("downloaded document", "source", source, "bytes", n, "sha256", sum, "path", f.Name())
	return fetched{path: f.Name(), temp: true, sum: sum}, nil
}
