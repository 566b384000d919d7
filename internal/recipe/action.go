package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/five82/espkey/internal/espkey"
)

// Operation names as they appear in recipe documents.
const (
	OpGetLog         = "get_log"
	OpDeleteLog      = "delete_log"
	OpGetDiagnostics = "get_diagnostics"
	OpGetConfig      = "get_config"
	OpGetVersion     = "get_version"
	OpRestart        = "restart"
	OpSendWiegand    = "send_weigand"
	OpDelay          = "delay"

	// opSendWiegandAlt is the correctly spelled alias of OpSendWiegand.
	opSendWiegandAlt = "send_wiegand"

	fileActionStoreWithDate = "store_with_date"
)

// maxDelaySeconds bounds delays to what a time.Duration can hold.
var maxDelaySeconds = float64(math.MaxInt64) / float64(time.Second)

// Action is one validated recipe step. The set of implementations is closed.
type Action interface {
	Operation() string
	isAction()
}

// GetLog fetches the device log. StoreWithDate also writes a dated export.
type GetLog struct{ StoreWithDate bool }

// DeleteLog clears the device log.
type DeleteLog struct{ ViaPost bool }

// GetDiagnostics reads the diagnostics register.
type GetDiagnostics struct{}

// GetConfig reads the device configuration.
type GetConfig struct{}

// GetVersion reads the firmware version.
type GetVersion struct{}

// Restart reboots the device.
type Restart struct{}

// SendWiegand replays a frame on the Wiegand bus.
type SendWiegand struct {
	Hex  string
	Bits uint
}

// Delay pauses the run.
type Delay struct{ Seconds float64 }

func (GetLog) Operation() string         { return OpGetLog }
func (DeleteLog) Operation() string      { return OpDeleteLog }
func (GetDiagnostics) Operation() string { return OpGetDiagnostics }
func (GetConfig) Operation() string      { return OpGetConfig }
func (GetVersion) Operation() string     { return OpGetVersion }
func (Restart) Operation() string        { return OpRestart }
func (SendWiegand) Operation() string    { return OpSendWiegand }
func (Delay) Operation() string          { return OpDelay }

func (GetLog) isAction()         {}
func (DeleteLog) isAction()      {}
func (GetDiagnostics) isAction() {}
func (GetConfig) isAction()      {}
func (GetVersion) isAction()     {}
func (Restart) isAction()        {}
func (SendWiegand) isAction()    {}
func (Delay) isAction()          {}

// Compile turns an action spec into an Action. The returned problems are
// empty exactly when the action is valid.
func (s ActionSpec) Compile() (Action, []string) {
	problems := s.problems.messages()
	action, issues := s.compile()
	problems = append(problems, issues...)
	if len(problems) > 0 {
		return nil, problems
	}
	return action, nil
}

func (s ActionSpec) compile() (Action, []string) {
	op := strings.TrimSpace(s.Operation)
	switch op {
	case "":
		if s.problems.has("operation") {
			return nil, nil
		}
		return nil, []string{`must contain an "operation"`}
	case OpGetLog:
		switch s.FileAction {
		case "":
			return GetLog{}, nil
		case fileActionStoreWithDate:
			return GetLog{StoreWithDate: true}, nil
		default:
			return nil, []string{fmt.Sprintf("unknown file_action %q", s.FileAction)}
		}
	case OpDeleteLog:
		return DeleteLog{ViaPost: s.WithPost != nil && *s.WithPost}, nil
	case OpGetDiagnostics:
		return GetDiagnostics{}, nil
	case OpGetConfig:
		return GetConfig{}, nil
	case OpGetVersion:
		return GetVersion{}, nil
	case OpRestart:
		return Restart{}, nil
	case OpSendWiegand, opSendWiegandAlt:
		if s.Data == nil {
			if s.problems.has("data") {
				return nil, nil
			}
			return nil, []string{`send_weigand requires "data" as <hex>:<bits>`}
		}
		frame, err := espkey.ParseFrame(*s.Data)
		if err != nil {
			return nil, []string{fmt.Sprintf("send_weigand data %q: %v", *s.Data, err)}
		}
		return SendWiegand{Hex: frame.Hex, Bits: frame.Bits}, nil
	case OpDelay:
		if len(s.Sec) == 0 {
			return nil, []string{`delay requires a numeric "sec"`}
		}
		var sec float64
		if err := json.Unmarshal(s.Sec, &sec); err != nil {
			return nil, []string{fmt.Sprintf("delay sec must be a number, got %s", s.Sec)}
		}
		if sec < 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
			return nil, []string{fmt.Sprintf("delay sec must be a non-negative number, got %v", sec)}
		}
		if sec >= maxDelaySeconds {
			return nil, []string{fmt.Sprintf("delay sec %v is too long", sec)}
		}
		return Delay{Seconds: sec}, nil
	default:
		return nil, []string{fmt.Sprintf("unknown operation %q", op)}
	}
}
