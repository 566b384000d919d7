package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/five82/espkey/internal/app"
	"github.com/five82/espkey/internal/config"
	"github.com/five82/espkey/internal/espkey"
	"github.com/five82/espkey/internal/recipe"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
)

type rootOptions struct {
	configPath string
	overrides  config.Overrides
}

func (o *rootOptions) app(cmd *cobra.Command) (*app.App, error) {
	return app.New(app.Options{
		ConfigPath: o.configPath,
		Overrides:  o.overrides,
		LogOutput:  cmd.ErrOrStderr(),
	})
}

// client resolves the selected device.
func (o *rootOptions) client(cmd *cobra.Command) (string, *espkey.Client, error) {
	a, err := o.app(cmd)
	if err != nil {
		return "", nil, err
	}
	return a.Client("")
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "espkey",
		Short:         "Automate and inspect ESPKey Wiegand interceptors",
		Long:          "espkey talks to ESPKey devices over HTTP: it fetches and decodes their logs, replays credentials, and runs recipes of device operations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/espkey/config.toml)")
	flags.StringVar(&opts.overrides.Device, "device", "", "configured device to use")
	flags.StringVar(&opts.overrides.BaseURL, "base-url", "", "device base URL, e.g. http://192.168.4.1")
	flags.StringVar(&opts.overrides.WebUser, "web-user", "", "basic auth user")
	flags.StringVar(&opts.overrides.WebPass, "web-pass", "", "basic auth password")
	flags.DurationVar(&opts.overrides.Timeout, "timeout", 0, "per-request timeout (default 15s)")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.overrides.OutputDir, "output-dir", "", "directory for run records and log exports")

	root.AddCommand(
		newGetLogCmd(opts),
		newJSONCmd(opts, "get-config", "Print the device configuration", func(ctx context.Context, c *espkey.Client) (any, error) {
			return c.GetConfig(ctx)
		}),
		newJSONCmd(opts, "get-diagnostics", "Print diagnostics with the decoded GPIO flags", func(ctx context.Context, c *espkey.Client) (any, error) {
			return c.GetDiagnostics(ctx)
		}),
		newJSONCmd(opts, "get-version", "Print the firmware version", func(ctx context.Context, c *espkey.Client) (any, error) {
			return c.GetVersion(ctx)
		}),
		newDeleteLogCmd(opts),
		newRestartCmd(opts),
		newSendWiegandCmd(opts),
		newRecipeCmd(opts),
		newViewCmd(opts),
	)
	return root
}

func newGetLogCmd(opts *rootOptions) *cobra.Command {
	var (
		file string
		tail int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "get-log",
		Short: "Fetch and decode the device log",
		Long:  "Fetch the device log and print it decoded as JSON. With --file a saved raw log is decoded instead, without reconstructed times.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.app(cmd)
			if err != nil {
				return err
			}
			exp, err := a.LoadLog(cmd.Context(), app.LogSource{File: file, Tail: tail})
			if err != nil {
				return err
			}
			if out == "" {
				data, err := exp.Marshal(true)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
				return err
			}
			if err := app.SaveLog(exp, out); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), fmt.Sprintf("wrote %d entries to %s", len(exp.Entries), out))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "decode a saved log file instead of fetching")
	cmd.Flags().IntVar(&tail, "tail", 0, "keep only the last N entries")
	cmd.Flags().StringVar(&out, "out", "", "write the decoded log to this file")
	return cmd
}

func newJSONCmd(opts *rootOptions, use, short string, fetch func(context.Context, *espkey.Client) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			v, err := fetch(cmd.Context(), client)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
}

func newDeleteLogCmd(opts *rootOptions) *cobra.Command {
	var withPost bool
	cmd := &cobra.Command{
		Use:   "delete-log",
		Short: "Clear the device log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := client.DeleteLog(cmd.Context(), withPost); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "log deleted on "+name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withPost, "with-post", false, "overwrite the log through /edit for firmware without /delete")
	return cmd
}

func newRestartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Reboot the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := client.Restart(cmd.Context()); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "restarting "+name)
			return nil
		},
	}
}

func newSendWiegandCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "send-wiegand <hex>:<bits>",
		Aliases: []string{"send-weigand"},
		Short:   "Transmit a Wiegand frame, e.g. 0aadc39:26",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := espkey.ParseFrame(args[0])
			if err != nil {
				return err
			}
			name, client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := client.SendWiegand(cmd.Context(), frame.Hex, frame.Bits); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), fmt.Sprintf("sent %s to %s", frame, name))
			return nil
		},
	}
}

func newRecipeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recipe <file>",
		Short: "Validate and run a recipe (JSON, JSONC or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd)
			if err != nil {
				return err
			}
			report, err := a.RunRecipe(cmd.Context(), args[0])
			printReport(cmd.OutOrStdout(), report)
			if err != nil && len(report.Tasks) > 0 {
				return fmt.Errorf("%d of %d tasks failed", report.Failed(), len(report.Tasks))
			}
			return err
		},
	}
}

func newViewCmd(opts *rootOptions) *cobra.Command {
	var (
		file      string
		tail      int
		refresh   time.Duration
		prefsPath string
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse a decoded log interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.app(cmd)
			if err != nil {
				return err
			}
			return a.View(cmd.Context(), app.ViewOptions{
				Source:    app.LogSource{File: file, Tail: tail},
				Refresh:   refresh,
				PrefsPath: prefsPath,
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "view a saved log (raw text or JSON export)")
	cmd.Flags().IntVar(&tail, "tail", 0, "keep only the last N entries")
	cmd.Flags().DurationVar(&refresh, "refresh", 0, "refetch the device log at this interval")
	cmd.Flags().StringVar(&prefsPath, "prefs", "", "viewer prefs file (default ~/.config/espkey/prefs.toml)")
	return cmd
}

func printReport(w io.Writer, report recipe.Report) {
	for _, t := range report.Tasks {
		label := fmt.Sprintf("%s (%s)", t.Task, t.Target)
		if t.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", failStyle.Render("✗"), label, t.Err)
		} else {
			fmt.Fprintf(w, "%s %s\n", okStyle.Render("✓"), label)
		}
		if t.File != "" {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render(t.File))
		}
	}
}

func printOK(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", okStyle.Render("✓"), msg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
