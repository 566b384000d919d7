package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/espkey/internal/config"
	"github.com/five82/espkey/internal/devicelog"
	"github.com/five82/espkey/internal/espkey"
	"github.com/five82/espkey/internal/logging"
	"github.com/five82/espkey/internal/logtail"
	"github.com/five82/espkey/internal/prefs"
	"github.com/five82/espkey/internal/recipe"
	"github.com/five82/espkey/internal/ui"
)

// Options configure the application.
type Options struct {
	ConfigPath string
	Overrides  config.Overrides
	// LogOutput receives diagnostics; nil means stderr.
	LogOutput io.Writer
	// HTTPClient replaces the device HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// App holds the resolved configuration and shared dependencies.
type App struct {
	Config config.Config
	Logger *slog.Logger

	httpClient *http.Client
	now        func() time.Time
}

// New loads configuration and builds the logger.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := logging.New(out, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Path != "" {
		logger.Debug("config loaded", "path", cfg.Path)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		httpClient: opts.HTTPClient,
		now:        time.Now,
	}, nil
}

// Client returns a client for the named device, or for the default device
// when name is empty, together with the resolved name.
func (a *App) Client(name string) (string, *espkey.Client, error) {
	name, dev, err := a.Config.Device(name)
	if err != nil {
		return "", nil, err
	}
	client, err := a.newClient(dev.BaseURL, dev.WebUser, dev.WebPass)
	if err != nil {
		return "", nil, fmt.Errorf("device %s: %w", name, err)
	}
	return name, client, nil
}

// Connect builds the device for a recipe target.
func (a *App) Connect(name string, target recipe.Target) (recipe.Device, error) {
	client, err := a.newClient(target.BaseURL, target.WebUser, target.WebPass)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("device ready", "target", name, "base_url", client.BaseURL())
	return client, nil
}

func (a *App) newClient(baseURL, user, pass string) (*espkey.Client, error) {
	opts := []espkey.Option{espkey.WithTimeout(a.Config.Timeout)}
	if a.httpClient != nil {
		opts = append(opts, espkey.WithHTTPClient(a.httpClient))
	}
	if user != "" {
		opts = append(opts, espkey.WithCredentials(user, pass))
	}
	return espkey.NewClient(baseURL, opts...)
}

// RunRecipe validates and executes the recipe at path. Records go to the
// recipe's output_dir, or the configured output directory.
func (a *App) RunRecipe(ctx context.Context, path string) (recipe.Report, error) {
	doc, err := recipe.ReadFile(path)
	if err != nil {
		return recipe.Report{}, err
	}
	store, err := recipe.NewStore(doc.OutputDir(a.Config.OutputDir), "")
	if err != nil {
		return recipe.Report{}, err
	}
	runner := recipe.NewRunner(a.Connect, store, a.Logger)
	return runner.Run(ctx, doc)
}

// LogSource selects where a log is read from.
type LogSource struct {
	// Device names a configured device; empty uses the default.
	Device string
	// File reads a saved log instead of a device: a JSON export when it ends
	// in .json, raw device log text otherwise.
	File string
	// Tail keeps only the newest entries when positive.
	Tail int
}

// LoadLog fetches and decodes a log from a device or a saved file. Logs read
// from raw text carry no reconstructed times.
func (a *App) LoadLog(ctx context.Context, src LogSource) (devicelog.Export, error) {
	if strings.TrimSpace(src.File) == "" {
		name, client, err := a.Client(src.Device)
		if err != nil {
			return devicelog.Export{}, err
		}
		return a.fetchLog(ctx, name, client.GetLog, src.Tail)
	}
	return readLogFile(src.File, src.Tail)
}

func (a *App) fetchLog(ctx context.Context, name string, fetch func(context.Context) (devicelog.Log, error), tail int) (devicelog.Export, error) {
	entries, err := fetch(ctx)
	if err != nil {
		return devicelog.Export{}, err
	}
	return devicelog.Export{
		Entries:  tailEntries(entries, tail),
		Metadata: devicelog.ExportMetadata{ESPKey: name, Retrieved: a.now().UTC()},
	}, nil
}

func readLogFile(path string, tail int) (devicelog.Export, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		exp, err := devicelog.ReadExport(path)
		if err != nil {
			return devicelog.Export{}, err
		}
		exp.Entries = tailEntries(exp.Entries, tail)
		return exp, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return devicelog.Export{}, fmt.Errorf("open log: %w", err)
	}
	text, err := logtail.ReadText(path, tail)
	if err != nil {
		return devicelog.Export{}, err
	}
	return devicelog.Export{
		Entries: devicelog.Parse(text),
		Metadata: devicelog.ExportMetadata{
			ESPKey:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Retrieved: info.ModTime().UTC(),
		},
	}, nil
}

func tailEntries(entries devicelog.Log, n int) devicelog.Log {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// SaveLog writes exp to path as indented JSON.
func SaveLog(exp devicelog.Export, path string) error {
	data, err := exp.Marshal(true)
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// ViewOptions configure the log viewer.
type ViewOptions struct {
	Source LogSource
	// Refresh refetches a device log at this interval; zero shows a snapshot.
	// Ignored for files.
	Refresh   time.Duration
	PrefsPath string
}

// View opens the interactive viewer until the user quits or ctx is cancelled.
func (a *App) View(ctx context.Context, opts ViewOptions) error {
	uiOpts, err := a.viewerOptions(ctx, opts)
	if err != nil {
		return err
	}
	return ui.Run(uiOpts)
}

func (a *App) viewerOptions(ctx context.Context, opts ViewOptions) (ui.Options, error) {
	var (
		exp    devicelog.Export
		poller *Poller
		err    error
	)
	if strings.TrimSpace(opts.Source.File) != "" {
		exp, err = readLogFile(opts.Source.File, opts.Source.Tail)
	} else {
		var name string
		var client *espkey.Client
		name, client, err = a.Client(opts.Source.Device)
		if err != nil {
			return ui.Options{}, err
		}
		poller = NewPoller(client, opts.Refresh, a.Logger)
		exp, err = a.fetchLog(ctx, name, poller.Poll, opts.Source.Tail)
	}
	if err != nil {
		return ui.Options{}, err
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		a.Logger.Warn("viewer prefs unavailable, using defaults", "error", err)
	}

	uiOpts := ui.Options{
		Context:   ctx,
		Entries:   exp.Entries,
		Source:    exp.Metadata.ESPKey,
		ThemeName: userPrefs.Theme,
		Filter:    userPrefs.Filter,
		PrefsPath: prefsPath,
	}
	if poller != nil && opts.Refresh > 0 {
		uiOpts.Refresher = poller
	}
	return uiOpts, nil
}
