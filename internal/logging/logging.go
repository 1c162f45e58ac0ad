// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// Config selects level and output format.
type Config struct {
	Level  string
	Format string
}

// Configure applies cfg to the standard logger, writing to stderr. Text
// output is coloured only when stderr is a terminal.
func Configure(cfg Config) error {
	return ConfigureOutput(cfg, os.Stderr)
}

// ConfigureOutput is Configure with an explicit writer.
func ConfigureOutput(cfg Config, out io.Writer) error {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		level = parsed
	}

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			ForceColors:   isTerminal(out),
			DisableColors: !isTerminal(out),
			FullTimestamp: true,
		})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("configuring logging: unknown format %q", cfg.Format)
	}

	log.SetOutput(out)
	log.SetLevel(level)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
