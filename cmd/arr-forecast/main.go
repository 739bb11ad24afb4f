package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iwvelando/arr-forecast/internal/config"
	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/internal/logging"
	"github.com/iwvelando/arr-forecast/pkg/adapters"
	"github.com/iwvelando/arr-forecast/pkg/constants"
	"github.com/iwvelando/arr-forecast/pkg/output"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	outFile := flag.String("out", "", "also write the forecast as CSV to this file")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over config
	out, err := conf.ResolveOutput(*outputFormatFlag, *outFile)
	if err != nil {
		logger.Fatal("invalid output settings",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	in, err := adapters.InputsFromConfig(logger, conf)
	if err != nil {
		logger.Fatal("failed to load forecast inputs",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	result, err := forecast.Run(logger, in)
	if err != nil {
		logger.Fatal("failed to compute forecast",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	for _, warning := range result.Warnings() {
		logger.Warn("Forecast warning: "+warning,
			zap.String("op", "main"),
		)
	}

	switch out.Format {
	case constants.OutputFormatPretty:
		output.PrettyFormat(result)
	case constants.OutputFormatCSV:
		output.CsvFormat(result)
	}

	if out.File != "" {
		if err := writeCSVFile(out.File, result); err != nil {
			logger.Fatal("failed to write forecast CSV",
				zap.String("op", "main"),
				zap.String("path", out.File),
				zap.Error(err),
			)
		}
		logger.Info("forecast CSV written",
			zap.String("op", "main"),
			zap.String("path", out.File),
		)
	}
}

func writeCSVFile(path string, result *forecast.Forecast) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.WriteCSV(f, result.Rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
