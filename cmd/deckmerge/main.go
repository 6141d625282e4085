// Command deckmerge appends the slides of one or more presentations to a
// template presentation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tsawler/deckmerge/internal/logging"
	"github.com/tsawler/deckmerge/opc"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	logLevel string
	log      logr.Logger
}

func newRootCommand() *cobra.Command {
	g := &globals{logLevel: "info", log: logr.Discard()}

	cmd := &cobra.Command{
		Use:           "deckmerge",
		Short:         "Merge PowerPoint presentations into a template",
		Long:          "deckmerge appends the slides of source presentations to a template, rescaling geometry and carrying layouts, masters, and media along.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", g.logLevel, "Log level (debug, info, warn, error)")

	mergeCmd := newMergeCommand(g)
	inspectCmd := newInspectCommand(g)
	cmd.AddCommand(mergeCmd, inspectCmd, newVersionCommand())

	cmd.Example = `  # Append two decks to a corporate template
  deckmerge merge template.pptx q1.pptx q2.pptx -o merged.pptx

  # Stretch 4:3 slides to fill a 16:9 template and keep a YAML report
  deckmerge merge template.pptx legacy.pptx -o merged.pptx --mode stretch --report merge.yaml

  # Show the structure of a deck
  deckmerge inspect merged.pptx`

	bind := bindViper(cmd, mergeCmd, inspectCmd)
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := bind(); err != nil {
			return err
		}
		log, err := logging.New(g.logLevel, c.ErrOrStderr())
		if err != nil {
			return err
		}
		g.log = log
		return nil
	}
	return cmd
}

// bindViper returns a hook that fills unset flags from DECKMERGE_* variables
// and from the config file.
func bindViper(commands ...*cobra.Command) func() error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("DECKMERGE")
	v.AutomaticEnv()
	configFile := os.Getenv("DECKMERGE_CONFIG")
	configureConfigFile(v, configFile)

	return func() error {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				return err
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			return err
		}
		for _, cmd := range commands {
			for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
				var setErr error
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed || !v.IsSet(f.Name) || setErr != nil {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val == "" {
						return
					}
					if err := f.Value.Set(val); err != nil {
						setErr = fmt.Errorf("config value for --%s: %w", f.Name, err)
					}
				})
				if setErr != nil {
					return setErr
				}
			}
		}
		return nil
	}
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "deckmerge"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "deckmerge"))
	}
	return dirs
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		message = fmt.Sprintf("%s\nHint: the merge was interrupted; no output was written.", err)
	case errors.Is(err, opc.ErrCorruptArchive):
		message = fmt.Sprintf("%s\nHint: every input must be a .pptx file saved by an Office Open XML editor.", err)
	case errors.Is(err, opc.ErrUnsupportedCanvas):
		message = fmt.Sprintf("%s\nHint: open the deck in PowerPoint and set a slide size under Design > Slide Size.", err)
	case errors.Is(err, opc.ErrMissingPart), errors.Is(err, opc.ErrDanglingRelationship):
		message = fmt.Sprintf("%s\nHint: the deck is damaged; re-save it from PowerPoint to repair it.", err)
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}
