package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/deckmerge/format"
	"github.com/tsawler/deckmerge/media"
	"github.com/tsawler/deckmerge/opc"
	"github.com/tsawler/deckmerge/pptx"
)

// inspection is the YAML document printed by the inspect command.
type inspection struct {
	Format       string `yaml:"format"`
	pptx.Summary `yaml:",inline"`
	Media        []media.Info `yaml:"media,omitempty"`
}

func newInspectCommand(g *globals) *cobra.Command {
	var withMedia bool
	cmd := &cobra.Command{
		Use:   "inspect DECK",
		Short: "Print the slides, layouts, masters, and media of a deck as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := download(cmd.Context(), afs.New(), args[0])
			if err != nil {
				return err
			}
			report, err := inspect(data, withMedia)
			if err != nil {
				return errors.Wrapf(err, "inspecting %s", args[0])
			}
			g.log.V(1).Info("inspected deck", "slides", len(report.Slides), "media", len(report.Media))
			out, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&withMedia, "media", true, "List media assets with their sizes")
	return cmd
}

func inspect(data []byte, withMedia bool) (*inspection, error) {
	f, err := format.DetectFromBytes(data)
	if err != nil {
		return nil, opc.Corrupt(err, "reading archive")
	}
	if !f.IsPresentation() && f != format.ZIP {
		return nil, opc.Corrupt(nil, "input is %s, not a presentation", format.Describe(data))
	}
	pkg, err := opc.Load(data)
	if err != nil {
		return nil, err
	}
	p, err := pptx.Open(pkg)
	if err != nil {
		return nil, err
	}
	summary, err := p.Summarize()
	if err != nil {
		return nil, err
	}

	report := &inspection{Format: f.String(), Summary: *summary}
	if withMedia {
		for _, part := range pkg.Parts() {
			if media.Internable(part) {
				report.Media = append(report.Media, media.Describe(part))
			}
		}
	}
	return report, nil
}
