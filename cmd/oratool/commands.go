package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-ora"
	"github.com/logicossoftware/go-ora/host"
)

func (a *app) newInspectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file.ora>",
		Short: "Print the layer stack of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.readOptions()
			if err != nil {
				return err
			}
			m, err := ora.ReadManifest(args[0], opts...)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			fmt.Fprintf(a.out, "%s: %dx%d, %d layers\n", args[0], m.Width, m.Height, len(m.Layers()))
			printElements(a, m.Root.Children, 1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the manifest as JSON")
	return cmd
}

func printElements(a *app, els []*ora.Element, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, el := range els {
		flags := ""
		if !el.Visible {
			flags = " hidden"
		}
		switch el.Kind {
		case ora.ElementStack:
			fmt.Fprintf(a.out, "%s[%s] opacity=%g %s%s\n", indent, el.Name, el.Opacity, el.CompositeOp, flags)
			printElements(a, el.Children, depth+1)
		default:
			fmt.Fprintf(a.out, "%s%s (%s) at %d,%d opacity=%g %s%s\n",
				indent, el.Name, el.Src, el.X, el.Y, el.Opacity, el.CompositeOp, flags)
		}
	}
}

func (a *app) newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.ora>...",
		Short: "Check archives against the OpenRaster packaging rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.readOptions()
			if err != nil {
				return err
			}
			failed := 0
			for _, file := range args {
				err := ora.Validate(file, opts...)
				switch {
				case err == nil:
					fmt.Fprintf(a.out, "%s: ok\n", file)
				case errors.Is(err, ora.ErrValidation):
					failed++
					fmt.Fprintf(a.out, "%s:\n", file)
					for _, line := range strings.Split(err.Error(), "\n") {
						fmt.Fprintf(a.out, "  %s\n", line)
					}
				default:
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) newExtractCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "extract <file.ora>",
		Short: "Unpack every entry of an archive into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.readOptions()
			if err != nil {
				return err
			}
			names, err := ora.Extract(args[0], dir, opts...)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(a.out, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	return cmd
}

func (a *app) newThumbnailCommand() *cobra.Command {
	var (
		size   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "thumbnail <file.ora>",
		Short: "Write the stored thumbnail as a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.readOptions()
			if err != nil {
				return err
			}
			th, err := ora.LoadThumbnail(a.host, args[0], size, opts...)
			if err != nil {
				return err
			}
			defer a.host.Release(th.Image)

			if output == "" {
				output = strings.TrimSuffix(args[0], ".ora") + ".thumb.png"
			}
			if err := a.exportFlat(th.Image, output); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %dx%d image, thumbnail %dx%d written to %s\n",
				args[0], th.Width, th.Height, th.Image.Width(), th.Image.Height(), output)
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "s", 0, "longest side of the output (0 keeps the stored size)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PNG file")
	return cmd
}

func (a *app) newFlattenCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "flatten <file.ora>",
		Short: "Composite the visible layers into a single PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.readOptions()
			if err != nil {
				return err
			}
			img, err := ora.Load(a.host, args[0], opts...)
			if err != nil {
				return err
			}
			defer a.host.Release(img)

			if output == "" {
				output = strings.TrimSuffix(args[0], ".ora") + ".png"
			}
			if err := a.exportFlat(img, output); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %dx%d written to %s\n", args[0], img.Width(), img.Height(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PNG file")
	return cmd
}

// exportFlat merges img in place and writes the result to path.
func (a *app) exportFlat(img host.Image, path string) error {
	layer, err := img.MergeVisible(host.ClipToImage)
	if err != nil {
		return err
	}
	level := 6
	if a.cfg.PNGCompression != nil {
		level = *a.cfg.PNGCompression
	}
	return a.host.ExportLayer(img, layer, path, host.PNGOptions{
		CompressionLevel: level,
		StripChunks:      []string{"oFFs"},
	})
}

func (a *app) newResaveCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "resave <file.ora>",
		Short: "Load an archive and write it back in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.readOptions()
			if err != nil {
				return err
			}
			img, err := ora.Load(a.host, args[0], opts...)
			if err != nil {
				return err
			}
			defer a.host.Release(img)

			if output == "" {
				output = args[0]
			}
			if err := ora.Save(a.host, img, output, a.cfg.writeOptions()...); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: overwrite the input)")
	return cmd
}
