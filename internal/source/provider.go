package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jengzang/car-location-go/internal/models"
)

// jsonFix accepts both the native fix encoding and gpsd TPV reports
// (the output of `gpspipe -w`).
type jsonFix struct {
	Class string `json:"class"`

	// native
	Timestamp int64    `json:"timestamp"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	SpeedMps  *float64 `json:"speedMps"`

	// gpsd TPV
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Speed *float64 `json:"speed"`
}

// toPoint converts a decoded line; ok is false for lines carrying no position
func (f jsonFix) toPoint(now time.Time) (models.RawLocationPoint, bool) {
	if f.Class != "" {
		// gpsd: only TPV reports with at least a 2D fix carry a position
		if f.Class != "TPV" || f.Mode < 2 || f.Lat == nil || f.Lon == nil {
			return models.RawLocationPoint{}, false
		}
		ts := now.UnixMilli()
		if t, err := time.Parse(time.RFC3339Nano, f.Time); err == nil {
			ts = t.UnixMilli()
		}
		return models.RawLocationPoint{Timestamp: ts, Latitude: *f.Lat, Longitude: *f.Lon, SpeedMps: f.Speed}, true
	}

	if f.Latitude == nil || f.Longitude == nil {
		return models.RawLocationPoint{}, false
	}
	ts := f.Timestamp
	if ts == 0 {
		ts = now.UnixMilli()
	}
	return models.RawLocationPoint{Timestamp: ts, Latitude: *f.Latitude, Longitude: *f.Longitude, SpeedMps: f.SpeedMps}, true
}

// StreamProvider reads newline-delimited JSON fixes from a stream opened per subscription
type StreamProvider struct {
	name string
	open func() (io.ReadCloser, error)
	now  func() time.Time
}

// NewStreamProvider wraps an already open reader. It supports a single
// subscription. A reader that is also an io.Closer is closed when the
// subscription ends; any other reader must be finite, since a blocked read
// cannot be interrupted.
func NewStreamProvider(name string, r io.Reader) *StreamProvider {
	return &StreamProvider{
		name: name,
		open: func() (io.ReadCloser, error) {
			if rc, ok := r.(io.ReadCloser); ok {
				return rc, nil
			}
			return io.NopCloser(r), nil
		},
		now: time.Now,
	}
}

// NewDeviceProvider opens path (a device node or capture file) on every subscription
func NewDeviceProvider(path string) *StreamProvider {
	return &StreamProvider{
		name: path,
		open: func() (io.ReadCloser, error) { return os.Open(path) },
		now:  time.Now,
	}
}

// Name returns the provider name
func (p *StreamProvider) Name() string {
	return p.name
}

// Subscribe decodes fixes line by line until EOF or cancellation.
// Lines that do not decode or carry no position are skipped.
func (p *StreamProvider) Subscribe(ctx context.Context, out chan<- models.RawLocationPoint) error {
	rc, err := p.open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.name, err)
	}
	defer rc.Close()

	// unblock a pending read when the subscription is cancelled
	stop := context.AfterFunc(ctx, func() { rc.Close() })
	defer stop()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		var f jsonFix
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			continue
		}
		fix, ok := f.toPoint(p.now())
		if !ok {
			continue
		}
		select {
		case out <- fix:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", p.name, err)
	}
	return nil
}

// DeviceAvailable reports whether path exists and is not a directory, the
// live-mode capability check used by cmd/server
func DeviceAvailable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
