package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/five82/espkey/internal/devicelog"
	"github.com/five82/espkey/internal/espkey"
)

// Device is the set of device operations a recipe can invoke.
// *espkey.Client implements it.
type Device interface {
	GetLog(ctx context.Context) (devicelog.Log, error)
	GetConfig(ctx context.Context) (map[string]any, error)
	GetDiagnostics(ctx context.Context) (espkey.Diagnostics, error)
	GetVersion(ctx context.Context) (map[string]any, error)
	DeleteLog(ctx context.Context, viaPost bool) error
	Restart(ctx context.Context) error
	SendWiegand(ctx context.Context, hexData string, bits uint) error
}

// Connector builds the device for a named recipe target.
type Connector func(name string, target Target) (Device, error)

// Runner executes recipes one task at a time.
type Runner struct {
	Connect  Connector
	Store    *Store
	Clock    Clock
	Logger   *slog.Logger
	NewRunID func() string
}

// NewRunner returns a Runner using the wall clock and random run IDs.
func NewRunner(connect Connector, store *Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Connect:  connect,
		Store:    store,
		Clock:    RealClock(),
		Logger:   logger.With("component", "recipe"),
		NewRunID: uuid.NewString,
	}
}

// TaskResult describes one executed task.
type TaskResult struct {
	Task   string
	Target string
	Record RunRecord
	// File is where the run record was written, empty if writing failed.
	File string
	Err  error
}

// Report summarises a recipe run in task order.
type Report struct {
	Tasks []TaskResult
}

// Failed counts failed tasks.
func (r Report) Failed() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Err != nil {
			n++
		}
	}
	return n
}

type connection struct {
	device Device
	err    error
}

// Run validates doc and then executes its tasks in order. A failing action
// ends its task; the partial record is still written and the next task runs.
// The returned error joins every task failure.
func (r *Runner) Run(ctx context.Context, doc *Document) (Report, error) {
	if err := Validate(doc); err != nil {
		return Report{}, err
	}

	conns := make(map[string]connection, len(doc.ESPKeys))
	var report Report
	var errs []error
	for _, task := range doc.Tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("task %s not started: %w", task.Name, err))
			continue
		}
		conn, ok := conns[task.Target]
		if !ok {
			conn.device, conn.err = r.Connect(task.Target, doc.ESPKeys[task.Target])
			conns[task.Target] = conn
		}
		result := r.runTask(ctx, task, conn)
		report.Tasks = append(report.Tasks, result)
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return report, errors.Join(errs...)
}

func (r *Runner) runTask(ctx context.Context, task Task, conn connection) TaskResult {
	logger := r.Logger.With("task", task.Name, "target", task.Target)
	rec := RunRecord{
		Actions: []ActionRecord{},
		Metadata: RecordMetadata{
			ESPKey:   task.Target,
			Task:     task.Name,
			RunID:    r.NewRunID(),
			RunStart: r.Clock.Now().UTC(),
			Status:   StatusCompleted,
		},
	}
	logger.Info("task started", "run_id", rec.Metadata.RunID)

	var taskErr error
	if conn.err != nil {
		rec.Metadata.Status = StatusFailed
		rec.Metadata.Error = conn.err.Error()
		taskErr = fmt.Errorf("task %s: connect %s: %w", task.Name, task.Target, conn.err)
	} else {
		for i, action := range compileTask(task) {
			ar := ActionRecord{Action: action.Operation(), Run: r.Clock.Now().UTC()}
			err := r.execute(ctx, conn.device, task, i, action, &ar)
			if err != nil {
				ar.Error = err.Error()
			}
			rec.Actions = append(rec.Actions, ar)
			if err != nil {
				rec.Metadata.Status = StatusFailed
				taskErr = fmt.Errorf("task %s: action %d (%s): %w", task.Name, i, action.Operation(), err)
				logger.Warn("action failed", "action", action.Operation(), "index", i, "error", err)
				break
			}
			logger.Debug("action done", "action", action.Operation(), "index", i)
		}
	}

	result := TaskResult{Task: task.Name, Target: task.Target, Record: rec, Err: taskErr}
	path, err := r.Store.WriteRecord(rec, task.Pretty())
	if err != nil {
		result.Err = errors.Join(taskErr, fmt.Errorf("task %s: %w", task.Name, err))
		logger.Error("run record not written", "error", err)
		return result
	}
	result.File = path
	logger.Info("run record written", "status", rec.Metadata.Status, "path", path)
	return result
}

func (r *Runner) execute(ctx context.Context, dev Device, task Task, index int, action Action, ar *ActionRecord) error {
	switch a := action.(type) {
	case Delay:
		sec := a.Seconds
		ar.Delay = &sec
		return r.Clock.Sleep(ctx, time.Duration(sec*float64(time.Second)))
	case GetLog:
		entries, err := dev.GetLog(ctx)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = devicelog.Log{}
		}
		if a.StoreWithDate {
			exp := devicelog.Export{
				Entries:  entries,
				Metadata: devicelog.ExportMetadata{ESPKey: task.Target, Retrieved: ar.Run},
			}
			path, err := r.Store.WriteLogExport(exp, task.Name, index, task.Pretty())
			if err != nil {
				return err
			}
			r.Logger.Info("wrote log", "path", path)
		}
		return setResult(ar, entries)
	case DeleteLog:
		if err := dev.DeleteLog(ctx, a.ViaPost); err != nil {
			return err
		}
		return setResult(ar, commandResult)
	case GetDiagnostics:
		diag, err := dev.GetDiagnostics(ctx)
		if err != nil {
			return err
		}
		return setResult(ar, diag)
	case GetConfig:
		cfg, err := dev.GetConfig(ctx)
		if err != nil {
			return err
		}
		return setResult(ar, cfg)
	case GetVersion:
		version, err := dev.GetVersion(ctx)
		if err != nil {
			return err
		}
		return setResult(ar, version)
	case Restart:
		if err := dev.Restart(ctx); err != nil {
			return err
		}
		return setResult(ar, commandResult)
	case SendWiegand:
		if err := dev.SendWiegand(ctx, a.Hex, a.Bits); err != nil {
			return err
		}
		return setResult(ar, commandResult)
	default:
		return fmt.Errorf("unhandled action %T", action)
	}
}

// commandResult is recorded for operations that return no payload.
var commandResult = map[string]string{"status": "ok"}

func setResult(ar *ActionRecord, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	ar.Result = data
	return nil
}
