package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/brewmap/internal/logger"
	"github.com/woozymasta/brewmap/internal/processor"
	"github.com/woozymasta/brewmap/internal/store"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input     string `short:"i" long:"in"        description:"Input CSV path or http(s) URL. Reads from stdin if empty"`
	Output    string `short:"o" long:"out"       description:"Output file path. Writes to stdout if empty"`
	Format    string `short:"f" long:"format"    description:"Output format" choice:"geojson" choice:"yaml" default:"geojson"`
	Precision int    `short:"p" long:"precision" description:"Significant digits kept in compact JSON numbers, 0 keeps all" default:"0"`
	Minify    bool   `short:"m" long:"minify"    description:"Compact JSON output"`
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

	// Read Input
	var (
		points []store.Point
		err    error
	)
	if opts.Input != "" {
		points, err = processor.LoadPoints(context.Background(), nil, opts.Input)
	} else {
		points, err = processor.ParsePoints(os.Stdin)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read points")
	}

	fc := processor.PointsToGeoJSON(points)
	enc := processor.EncodeOptions{Format: opts.Format, Compact: opts.Minify, Precision: opts.Precision}

	if opts.Output == "" {
		if err := processor.Encode(os.Stdout, fc, enc); err != nil {
			log.Fatal().Err(err).Msg("Failed to write points")
		}
		return
	}

	if err := processor.SaveGeoJSON(opts.Output, fc, enc); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write points")
	}

	fmt.Fprintf(os.Stderr, "Successfully converted %d of %d rows to %s (format: %s)\n",
		len(fc.Features), len(points), opts.Output, opts.Format)
}
