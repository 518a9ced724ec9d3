// Package source opens scripts and report destinations by location: local
// paths, "-" for the standard streams, file://, http(s):// and s3:// URLs.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
)

// Stdio is the location that stands for stdin or stdout
const Stdio = "-"

// Config contains S3 authentication configuration
type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

// FromConfig extracts the S3 settings of a runtime configuration
func FromConfig(c *types.Config) *Config {
	return &Config{
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
	}
}

// Scheme represents the scheme of a location
type Scheme string

const (
	SchemeStdio Scheme = "stdio"
	SchemeFile  Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeLocal Scheme = "local" // no scheme, local path
)

// DetectScheme detects the URL scheme from a path string
func DetectScheme(path string) Scheme {
	lowerPath := strings.ToLower(path)
	switch {
	case path == Stdio:
		return SchemeStdio
	case strings.HasPrefix(lowerPath, "s3://"):
		return SchemeS3
	case strings.HasPrefix(lowerPath, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(lowerPath, "http://"):
		return SchemeHTTP
	case strings.HasPrefix(lowerPath, "file://"):
		return SchemeFile
	default:
		return SchemeLocal
	}
}

// LocalPath strips a file:// prefix
func LocalPath(path string) string {
	if DetectScheme(path) == SchemeFile {
		return path[len("file://"):]
	}
	return path
}

// Open opens a reader for the given location
func Open(ctx context.Context, path string, cfg *Config) (io.ReadCloser, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch DetectScheme(path) {
	case SchemeStdio:
		r = io.NopCloser(os.Stdin)
	case SchemeLocal, SchemeFile:
		r, err = os.Open(LocalPath(path))
	case SchemeHTTP, SchemeHTTPS:
		r, err = openHTTPReader(ctx, path)
	case SchemeS3:
		r, err = openS3Reader(ctx, path, cfg)
	}
	if err != nil {
		return nil, errors.NewSourceError(path, err)
	}
	return r, nil
}

// ReadAll reads the whole content at a location
func ReadAll(ctx context.Context, path string, cfg *Config) (string, error) {
	r, err := Open(ctx, path, cfg)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewSourceError(path, err)
	}
	return string(data), nil
}

// Create opens a writer for the given location. Content written to an s3://
// location is uploaded on Close.
func Create(ctx context.Context, path string, cfg *Config) (io.WriteCloser, error) {
	var (
		w   io.WriteCloser
		err error
	)
	switch DetectScheme(path) {
	case SchemeStdio:
		w = nopWriteCloser{os.Stdout}
	case SchemeLocal, SchemeFile:
		w, err = os.Create(LocalPath(path))
	case SchemeHTTP, SchemeHTTPS:
		err = fmt.Errorf("HTTP/HTTPS does not support writing")
	case SchemeS3:
		w, err = openS3Writer(ctx, path, cfg)
	}
	if err != nil {
		return nil, errors.NewSourceError(path, err)
	}
	return w, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// openHTTPReader opens an HTTP GET reader
func openHTTPReader(ctx context.Context, url string) (io.ReadCloser, error) {
	client := &http.Client{
		Timeout: 5 * time.Minute, // generous timeout for large scripts
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
