// Package protocol defines the JSON wire types exchanged between chronosd
// and chronosctl over the control-plane connection. Transport and TLS setup
// live in rpcserver and client; this package only fixes the shape of
// requests and responses.
package protocol

const (
	ActionVerboseOn  = "verbose_on"
	ActionVerboseOff = "verbose_off"
	ActionListActive = "list_active"
	ActionListStatic = "list_static"
	ActionPurge      = "purge"
	ActionRefresh    = "refresh"
	ActionCreate     = "create"
	ActionHistory    = "history"
)

// Request is the single envelope chronosctl sends for every control-plane
// action.
type Request struct {
	Action string `json:"action"`

	ID       string `json:"id,omitempty"`
	Kind     string `json:"type,omitempty"`
	Interval string `json:"interval,omitempty"`
	Command  string `json:"command,omitempty"`
	Days     string `json:"days,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Response is the single reply envelope for every action.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Timers  []TimerInfo `json:"timers,omitempty"`
	History []Execution `json:"history,omitempty"`
}

// TimerInfo is the serialisable form of a timer returned by ListActive and
// ListStatic: next_hit is rendered as a local-time string, and ListStatic
// always reports "None" since its timers were never scheduled.
type TimerInfo struct {
	ID       string `json:"id"`
	Kind     string `json:"type"`
	Interval string `json:"interval"`
	Command  string `json:"command"`
	Days     string `json:"days"`
	NextHit  string `json:"next_hit"`
	Dynamic  bool   `json:"dynamic"`
}

// Execution is one row of the execution-history store.
type Execution struct {
	Timestamp string `json:"timestamp"`
	Success   bool   `json:"success"`
	ExitCode  int    `json:"exit_code"`
	FirstLine string `json:"first_line,omitempty"`
}

// Error kinds surfaced as the prefix of protocol.Response.Error.
const (
	ErrKindNotFound     = "not_found"
	ErrKindAlreadyExist = "already_exists"
	ErrKindParseError   = "parse_error"
)
