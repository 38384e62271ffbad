package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ndvi/pkg/config"
	"ndvi/pkg/ndvi"
)

func main() {
	// Parse command line arguments
	nirPath := flag.String("nir", "", "Raster holding the near-infrared band")
	colourPath := flag.String("colour", "", "Raster holding the visible colour band")
	outputPath := flag.String("out", "ndvi.tif", "Output NDVI GeoTIFF")
	encoding := flag.String("encoding", "", "Output encoding: byte or float (default from config)")
	driverName := flag.String("driver", "", "Raster driver: gtiff or gdal (default from config)")
	configPath := flag.String("config", "ndvi.yaml", "YAML configuration file")
	statsPath := flag.String("stats", "", "Write a YAML statistics report to this path")
	previewPath := flag.String("preview", "", "Write a PNG/JPEG quicklook to this path")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			logrus.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *nirPath == "" || *colourPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the configuration file
	if *encoding != "" {
		cfg.Output.Encoding = *encoding
	}
	if *driverName != "" {
		cfg.Output.Driver = *driverName
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)

	enc, err := ndvi.ParseEncoding(cfg.Output.Encoding)
	if err != nil {
		logrus.Fatalf("Invalid encoding: %v", err)
	}

	driver, err := lookupDriver(cfg.Output.Driver)
	if err != nil {
		logrus.Fatalf("Invalid driver: %v", err)
	}

	params := &ndvi.Params{
		NIRPath:             *nirPath,
		ColourPath:          *colourPath,
		NIRBand:             cfg.Input.NIRBand,
		ColourBand:          cfg.Input.ColourBand,
		OutputPath:          *outputPath,
		Encoding:            enc,
		StatsPath:           *statsPath,
		VegetationThreshold: cfg.Report.VegetationThreshold,
		PreviewPath:         *previewPath,
		PreviewRamp:         cfg.Report.Ramp,
	}
	if params.StatsPath == "" && cfg.Report.Stats {
		params.StatsPath = siblingPath(*outputPath, ".stats.yaml")
	}
	if params.PreviewPath == "" && cfg.Report.Preview {
		params.PreviewPath = siblingPath(*outputPath, ".preview.png")
	}

	logger := logrus.WithField("driver", cfg.Output.Driver)
	processor := ndvi.NewProcessor(params, driver, logger)

	startTime := time.Now()
	if err := processor.Process(); err != nil {
		logrus.Fatalf("NDVI failed: %v", err)
	}
	processingTime := time.Since(startTime)

	out := processor.Output()
	minX, maxY := out.GeoTransform.Apply(0, 0)
	maxX, minY := out.GeoTransform.Apply(float64(out.Cols), float64(out.Rows))

	fmt.Printf("\nNDVI completed in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Output raster: %s (%dx%d %s, nodata %v)\n", out.Path, out.Cols, out.Rows, out.PixelType, out.Nodata)
	fmt.Printf("Footprint: (%.6f, %.6f) - (%.6f, %.6f)\n", minX, minY, maxX, maxY)
	fmt.Printf("Invalid pixels: %d of %d\n", out.Invalid, out.Rows*out.Cols)

	stats := processor.Stats()
	if stats != nil && stats.Valid > 0 {
		fmt.Printf("NDVI min/mean/max: %.3f / %.3f / %.3f\n", stats.Min, stats.Mean, stats.Max)
		fmt.Printf("Vegetated (NDVI > %.2f): %.1f%%\n", stats.Threshold, stats.VegetatedPercent)
	}
}

// siblingPath replaces the extension of path with suffix.
func siblingPath(path, suffix string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, string(os.PathSeparator)) {
		path = path[:i]
	}
	return path + suffix
}
