package feed

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// readCloser chains the decompressor's Close with the file's.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens a feed file, transparently decompressing .zst, .gz and .bz2.
func Open(path string) (io.ReadCloser, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open that also accepts http(s) URLs, fetched with ctx.
// The compression is picked from the URL path, or from a gzip
// Content-Encoding the transport did not already undo.
func OpenContext(ctx context.Context, path string) (io.ReadCloser, error) {
	if !isURL(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return decompress(f, path, false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	name := path
	if u, err := url.Parse(path); err == nil {
		name = u.Path
	}
	return decompress(resp.Body, name, resp.Header.Get("Content-Encoding") == "gzip")
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func decompress(src io.ReadCloser, name string, gzipped bool) (io.ReadCloser, error) {
	rc := &readCloser{Reader: src, closers: []func() error{src.Close}}

	switch {
	case strings.HasSuffix(name, ".zst"):
		dec, err := zstd.NewReader(src)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc.Reader = dec
		rc.closers = append([]func() error{func() error { dec.Close(); return nil }}, rc.closers...)
	case strings.HasSuffix(name, ".gz") || gzipped:
		gz, err := gzip.NewReader(src)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		rc.Reader = gz
		rc.closers = append([]func() error{gz.Close}, rc.closers...)
	case strings.HasSuffix(name, ".bz2"):
		rc.Reader = bzip2.NewReader(src)
	}
	return rc, nil
}

// writeCloser flushes the compressor before closing the file.
type writeCloser struct {
	io.Writer
	closers []func() error
}

func (w *writeCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Create creates an output file, compressing with zstd or gzip when the
// extension asks for it.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	wc := &writeCloser{Writer: f, closers: []func() error{f.Close}}

	switch {
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("zstd: %w", err)
		}
		wc.Writer = enc
		wc.closers = append([]func() error{enc.Close}, wc.closers...)
	case strings.HasSuffix(path, ".gz"):
		gz := gzip.NewWriter(f)
		wc.Writer = gz
		wc.closers = append([]func() error{gz.Close}, wc.closers...)
	}
	return wc, nil
}
