// Package processor loads point sources and converts points and clusters to GeoJSON.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/brewmap/internal/store"
)

// ErrNoPoints is wrapped by LoadError when a source parsed fine but has no
// row with a usable coordinate.
var ErrNoPoints = errors.New("no locatable points")

// LoadError reports a point source that is missing, unreadable or empty.
type LoadError struct {
	Err    error
	Source string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("couldn't load points from %q: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadPoints reads points from a local CSV file or an http(s) URL.
// Every failure is returned as a *LoadError.
func LoadPoints(ctx context.Context, client *http.Client, source string) ([]store.Point, error) {
	if source == "" {
		return nil, &LoadError{Source: source, Err: errors.New("no source configured")}
	}

	rc, err := openSource(ctx, client, source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = rc.Close() }()

	points, err := ParsePoints(rc)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	located := len(store.Located(points))
	if located == 0 {
		return nil, &LoadError{Source: source, Err: ErrNoPoints}
	}

	log.Info().
		Str("source", source).
		Int("rows", len(points)).
		Int("located", located).
		Msg("Points loaded")

	return points, nil
}

func openSource(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.Open(source)
	}

	if client == nil {
		client = http.DefaultClient
	}

	log.Debug().Str("url", source).Msg("Downloading point source")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
