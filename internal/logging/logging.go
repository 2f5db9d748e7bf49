package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. Verbose forces debug level and
// reports the caller.
func Setup(level string, verbose bool) error {
	return setup(os.Stderr, level, verbose)
}

func setup(w io.Writer, level string, verbose bool) error {
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{QuoteEmptyFields: true, FullTimestamp: true})
	log.SetReportCaller(verbose)

	if verbose {
		log.SetLevel(log.DebugLevel)
		return nil
	}
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	log.SetLevel(lvl)
	return nil
}
