package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/brewmap/internal/cluster"
	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/store"
)

// Output formats accepted by Encode.
const (
	FormatGeoJSON = "geojson"
	FormatYAML    = "yaml"
)

const jsonMediaType = "application/json"

// ClustersToGeoJSON converts a clustering pass to a feature collection,
// one feature per cluster placed at its center.
func ClustersToGeoJSON(clusters []cluster.Cluster) geo.FeatureCollection {
	fc := geo.NewFeatureCollection(len(clusters))
	for _, c := range clusters {
		fc.Features = append(fc.Features, geo.PointFeature(c.Center, map[string]any{
			"cluster":     c.IsAggregate,
			"cluster_id":  c.ID.String(),
			"point_count": c.Count(),
			"label":       c.Label(),
			"members":     c.MemberIDs(),
		}))
	}
	return fc
}

// PointsToGeoJSON converts located points to a feature collection.
// Points without a coordinate are left out.
func PointsToGeoJSON(points []store.Point) geo.FeatureCollection {
	fc := geo.NewFeatureCollection(len(points))
	for _, p := range points {
		pos, ok := p.Position()
		if !ok {
			continue
		}

		props := map[string]any{
			"id":      p.ID,
			"name":    p.Name,
			"type":    p.Type,
			"address": p.FullAddress(),
		}
		if p.Phone != "" {
			props["phone"] = p.Phone
		}
		if p.WebsiteURL != "" {
			props["website"] = p.WebsiteURL
		}

		fc.Features = append(fc.Features, geo.PointFeature(pos, props))
	}
	return fc
}

// EncodeOptions control Encode output.
type EncodeOptions struct {
	Format  string // FormatGeoJSON (default) or FormatYAML
	Compact bool   // strip JSON whitespace and shorten numbers, ignored for YAML
	// Precision is the number of significant digits compact JSON numbers keep,
	// 0 keeps them all. 9 keeps coordinates to about 0.1 m.
	Precision int
}

// Encode writes v in the requested format.
func Encode(w io.Writer, v any, opts EncodeOptions) error {
	switch opts.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()

	case FormatGeoJSON, "":
		if !opts.Compact {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		m := minify.New()
		m.Add(jsonMediaType, &mjson.Minifier{Precision: opts.Precision})

		mw := m.Writer(jsonMediaType, w)
		enc := json.NewEncoder(mw)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			_ = mw.Close()
			return err
		}
		return mw.Close()

	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// SaveGeoJSON encodes v and writes it to path, creating parent directories.
func SaveGeoJSON(path string, v any, opts EncodeOptions) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return Encode(f, v, opts)
}
