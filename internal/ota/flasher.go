package ota

import (
	"context"
	"crypto/md5" //nolint:gosec // Integrity check against the server's X-MD5 header
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Request headers identifying the device to the update server.
const (
	HeaderVersion  = "X-Device-Version"
	HeaderDeviceID = "X-Device-Id"
	HeaderMD5      = "X-MD5"
)

const (
	// executablePerm is applied to the new image before it replaces the old one.
	executablePerm = 0o755

	defaultFetchTimeout = 5 * time.Minute
	defaultMaxImageSize = 64 << 20
)

// Restarter restarts the device after a new image is in place.
type Restarter interface {
	Restart(reason string) error
}

// FlasherConfig configures an HTTPFlasher.
type FlasherConfig struct {
	// TargetPath is the executable that the image replaces.
	TargetPath string

	// Timeout bounds the whole download.
	Timeout time.Duration

	// MaxSize is the largest accepted image in bytes.
	MaxSize int64

	// Version and DeviceID are sent to the server, which may use them to
	// decide whether an update is due.
	Version  string
	DeviceID string
}

// HTTPFlasher fetches images over plain HTTP and installs them by atomically
// renaming over the target executable.
type HTTPFlasher struct {
	cfg       FlasherConfig
	client    *http.Client
	restarter Restarter
}

// NewHTTPFlasher creates a flasher. Zero Timeout and MaxSize take defaults.
func NewHTTPFlasher(cfg FlasherConfig, restarter Restarter) *HTTPFlasher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxImageSize
	}
	return &HTTPFlasher{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		restarter: restarter,
	}
}

// FetchAndFlash downloads the image at target and installs it.
//
// A 304 response means NoUpdateAvailable. Any other non-200 response, a
// transport error, an oversized or empty body, or an X-MD5 mismatch is
// Failed and leaves the current executable untouched. On success the
// restarter is invoked and Applied is returned.
func (f *HTTPFlasher) FetchAndFlash(ctx context.Context, target Target) Result {
	url, err := targetURL(target)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set(HeaderVersion, f.cfg.Version)
	req.Header.Set(HeaderDeviceID, f.cfg.DeviceID)

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("fetching %s: %w", url, err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return Result{Outcome: NoUpdateAvailable}
	case http.StatusOK:
	default:
		return Result{Outcome: Failed, Err: fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)}
	}

	if resp.ContentLength > f.cfg.MaxSize {
		return Result{Outcome: Failed, Err: fmt.Errorf("%w: %d bytes", ErrImageTooLarge, resp.ContentLength)}
	}

	if err := f.install(resp.Body, resp.Header.Get(HeaderMD5)); err != nil {
		return Result{Outcome: Failed, Err: err}
	}

	if err := f.restarter.Restart("firmware updated"); err != nil {
		return Result{Outcome: Applied, Err: fmt.Errorf("restarting after update: %w", err)}
	}
	return Result{Outcome: Applied}
}

// install streams body to a temp file beside the target, verifies it and
// renames it into place.
func (f *HTTPFlasher) install(body io.Reader, wantMD5 string) error {
	dir := filepath.Dir(f.cfg.TargetPath)
	tmp, err := os.CreateTemp(dir, ".graydevice-ota-*")
	if err != nil {
		return fmt.Errorf("creating temp image: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()        //nolint:errcheck // Best effort cleanup on error path
			os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error path
		}
	}()

	hash := md5.New() //nolint:gosec // See import
	n, err := io.Copy(io.MultiWriter(tmp, hash), io.LimitReader(body, f.cfg.MaxSize+1))
	if err != nil {
		return fmt.Errorf("downloading image: %w", err)
	}
	if n > f.cfg.MaxSize {
		return fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, f.cfg.MaxSize)
	}
	if n == 0 {
		return ErrEmptyImage
	}

	if wantMD5 != "" {
		got := hex.EncodeToString(hash.Sum(nil))
		if !strings.EqualFold(got, strings.TrimSpace(wantMD5)) {
			return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, wantMD5)
		}
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing image: %w", err)
	}
	if err := os.Chmod(tmpPath, executablePerm); err != nil {
		return fmt.Errorf("marking image executable: %w", err)
	}
	if err := os.Rename(tmpPath, f.cfg.TargetPath); err != nil {
		return fmt.Errorf("installing image: %w", err)
	}
	committed = true
	return nil
}

// targetURL builds http://server:port/uri.
func targetURL(t Target) (string, error) {
	if t.Server == "" || t.Port <= 0 || t.Port > 65535 || t.URI == "" {
		return "", fmt.Errorf("%w: %s:%d%s", ErrInvalidTarget, t.Server, t.Port, t.URI)
	}
	uri := t.URI
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return "http://" + net.JoinHostPort(t.Server, strconv.Itoa(t.Port)) + uri, nil
}
