package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v2"

	"github.com/logicossoftware/go-ora"
)

// Config is the optional YAML configuration of oratool. Flags given on the
// command line take precedence over file values.
type Config struct {
	LogLevel         string       `yaml:"log_level"`
	LogFormat        string       `yaml:"log_format"`
	FilenameEncoding string       `yaml:"filename_encoding"`
	ScratchDir       string       `yaml:"scratch_dir"`
	PNGCompression   *int         `yaml:"png_compression"`
	Limits           LimitsConfig `yaml:"limits"`
}

type LimitsConfig struct {
	MaxDimension    int    `yaml:"max_dimension"`
	MaxLayers       int    `yaml:"max_layers"`
	MaxDepth        int    `yaml:"max_depth"`
	MaxManifestSize uint64 `yaml:"max_manifest_size"`
	MaxEntrySize    uint64 `yaml:"max_entry_size"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:         "info",
		LogFormat:        "auto",
		FilenameEncoding: "windows-1252",
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) limits() ora.Limits {
	return ora.Limits{
		MaxDimension:    c.Limits.MaxDimension,
		MaxLayers:       c.Limits.MaxLayers,
		MaxDepth:        c.Limits.MaxDepth,
		MaxManifestSize: c.Limits.MaxManifestSize,
		MaxEntrySize:    c.Limits.MaxEntrySize,
	}
}

func (c Config) filenameEncoding() (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(c.FilenameEncoding)
	if err != nil {
		return nil, fmt.Errorf("filename encoding %q: %w", c.FilenameEncoding, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("filename encoding %q is not supported", c.FilenameEncoding)
	}
	return enc, nil
}

func (c Config) readOptions() ([]ora.ReadOption, error) {
	enc, err := c.filenameEncoding()
	if err != nil {
		return nil, err
	}
	opts := []ora.ReadOption{
		ora.WithReadLimits(c.limits()),
		ora.WithFilenameEncoding(enc),
	}
	if c.ScratchDir != "" {
		opts = append(opts, ora.WithReadScratchDir(c.ScratchDir))
	}
	return opts, nil
}

func (c Config) writeOptions() []ora.WriteOption {
	var opts []ora.WriteOption
	if c.ScratchDir != "" {
		opts = append(opts, ora.WithWriteScratchDir(c.ScratchDir))
	}
	if c.PNGCompression != nil {
		opts = append(opts, ora.WithPNGCompression(*c.PNGCompression))
	}
	return opts
}

// newLogger builds the logger handed to the codec. Text output is used
// when w is a terminal and the format is "auto".
func (c Config) newLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)

	format := strings.ToLower(c.LogFormat)
	if format == "auto" || format == "" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	switch format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return l, nil
}
