package main

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/brewmap/internal/cluster"
	"github.com/woozymasta/brewmap/internal/config"
	"github.com/woozymasta/brewmap/internal/geo"
	"github.com/woozymasta/brewmap/internal/logger"
	"github.com/woozymasta/brewmap/internal/processor"
	"github.com/woozymasta/brewmap/internal/scheduler"
	"github.com/woozymasta/brewmap/internal/store"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"    env:"CONFIG_FILE"     description:"Path to configuration file, built-in defaults if empty"`
	Source     string        `short:"s" long:"source"    env:"BREWMAP_SOURCE"  description:"Point CSV path or http(s) URL, overrides config"`
	Center     string        `short:"C" long:"center"    description:"Viewport center as lat,lon"`
	Span       string        `short:"S" long:"span"      description:"Viewport span as lat,lon degrees"`
	User       string        `short:"u" long:"user"      description:"User position as lat,lon; recenters the map on it"`
	Output     string        `short:"o" long:"out"       description:"Output file path. Writes to stdout if empty"`
	Format     string        `short:"f" long:"format"    description:"Output format" choice:"geojson" choice:"yaml" default:"geojson"`
	Timeout    time.Duration `short:"t" long:"timeout"   env:"HTTP_TIMEOUT"    description:"HTTP source timeout" default:"15s"`
	Precision  int           `short:"p" long:"precision" description:"Significant digits kept in compact JSON numbers, 0 keeps all" default:"0"`
	Minify     bool          `short:"m" long:"minify"    description:"Compact JSON output"`
	Follow     bool          `short:"F" long:"follow"    description:"Read viewports from stdin and emit clusters as they settle"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Source != "" {
		cfg.Source = opts.Source
	}

	vp, err := initialViewport(cfg.Map, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid viewport")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto: make(map[string]func(string, *tls.Conn) http.RoundTripper),
		},
		Timeout: opts.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, err := processor.LoadPoints(ctx, client, cfg.Source)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load data")
	}

	st := store.New()
	snap := st.Replace(points)
	engine := cluster.New(cfg.Clustering)

	out, closeOut := openOutput(opts.Output)
	defer closeOut()

	if opts.Follow {
		follow(ctx, engine, cfg, snap, vp, out, opts)
		return
	}

	started := time.Now()
	clusters := engine.Compute(snap.Points, vp)
	logPass(engine, vp, clusters, time.Since(started))

	enc := processor.EncodeOptions{Format: opts.Format, Compact: opts.Minify, Precision: opts.Precision}
	if err := processor.Encode(out, processor.ClustersToGeoJSON(clusters), enc); err != nil {
		log.Fatal().Err(err).Msg("Failed to write clusters")
	}
}

// follow feeds viewport lines from stdin into a scheduler and writes every
// applied result until stdin ends or the context is canceled.
func follow(ctx context.Context, engine *cluster.Engine, cfg *config.Config, snap *store.Snapshot, vp geo.Viewport, out io.Writer, opts Options) {
	sched := scheduler.New(engine.Compute, vp, cfg.SchedulerOptions())
	results, cancel := sched.Subscribe()
	defer cancel()

	// one document per line keeps the stream line-oriented
	enc := processor.EncodeOptions{Format: opts.Format, Compact: true, Precision: opts.Precision}

	written := make(chan struct{})
	go func() {
		defer close(written)
		for res := range results {
			logPass(engine, res.Viewport, res.Clusters, res.Elapsed)
			if opts.Format == processor.FormatYAML {
				_, _ = io.WriteString(out, "---\n")
			}
			if err := processor.Encode(out, processor.ClustersToGeoJSON(res.Clusters), enc); err != nil {
				log.Error().Err(err).Uint64("seq", res.Seq).Msg("Failed to write clusters")
			}
			if opts.Format != processor.FormatYAML {
				_, _ = io.WriteString(out, "\n")
			}
		}
	}()

	sched.SetPoints(snap)

	lines := make(chan string)
	go func() {
		defer close(lines)
		if err := scanLines(ctx, os.Stdin, lines); err != nil {
			log.Error().Err(err).Msg("Failed to read viewports")
		}
	}()

	log.Info().Msg("Reading viewports from stdin")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			cmd, next, err := parseCommand(line, cfg.Map)
			if err != nil {
				log.Warn().Err(err).Str("line", line).Msg("Skipping input line")
				continue
			}
			switch cmd {
			case cmdViewport:
				sched.SetViewport(next)
			case cmdRefresh:
				sched.Refresh()
			case cmdFlush:
				sched.Flush()
			}
		}
	}

	sched.Flush()
	sched.Close()
	<-written
}

func logPass(engine *cluster.Engine, vp geo.Viewport, clusters []cluster.Cluster, elapsed time.Duration) {
	stats := cluster.Summarize(clusters)
	zoom := vp.ZoomLevel()

	log.Info().
		Float64("lat", vp.Center.Lat).
		Float64("lon", vp.Center.Lon).
		Float64("zoom", zoom).
		Float64("radius", engine.RadiusFor(zoom)).
		Int("clusters", stats.Clusters).
		Int("aggregates", stats.Aggregates).
		Int("singles", stats.Singles).
		Int("points", stats.Points).
		Dur("elapsed", elapsed).
		Msg("Clusters computed")
}

func openOutput(path string) (io.Writer, func()) {
	if path == "" {
		return os.Stdout, func() {}
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to create output file")
	}

	return f, func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to close file")
		}
	}
}
