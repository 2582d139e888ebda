package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-ora"
	"github.com/logicossoftware/go-ora/host/memhost"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg    Config
	host   *memhost.Host
	out    io.Writer
	logOut io.Writer
}

func newRootCommand(out, logOut io.Writer) *cobra.Command {
	a := &app{host: memhost.New(), out: out, logOut: logOut}

	var (
		configPath       string
		logLevel         string
		logFormat        string
		filenameEncoding string
		scratchDir       string
	)

	cmd := &cobra.Command{
		Use:   "oratool",
		Short: "Inspect, check and convert OpenRaster (.ora) files",
		Long: `oratool reads and writes OpenRaster layered images. It can print the
layer stack, check an archive against the packaging rules, extract entries,
render the stored thumbnail or a flattened PNG, and rewrite a file in
canonical form.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if flags.Changed("filename-encoding") {
				cfg.FilenameEncoding = filenameEncoding
			}
			if flags.Changed("scratch-dir") {
				cfg.ScratchDir = scratchDir
			}
			logger, err := cfg.newLogger(a.logOut)
			if err != nil {
				return err
			}
			ora.SetLogger(logger)
			a.cfg = cfg
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(logOut)

	pf := cmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "auto", "log format (auto, text, json)")
	pf.StringVar(&filenameEncoding, "filename-encoding", "windows-1252", "IANA name of the encoding of legacy entry names")
	pf.StringVar(&scratchDir, "scratch-dir", "", "parent directory for temporary files")

	cmd.AddCommand(a.newInspectCommand())
	cmd.AddCommand(a.newValidateCommand())
	cmd.AddCommand(a.newExtractCommand())
	cmd.AddCommand(a.newThumbnailCommand())
	cmd.AddCommand(a.newFlattenCommand())
	cmd.AddCommand(a.newResaveCommand())

	return cmd
}
