// Package audit records who changed admin state, and who read registrant
// data, as structured log lines.
package audit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/auth"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry is one audited action. Actor is an admin email, or "cli" for
// approvals made from the command line.
type Entry struct {
	Time       time.Time         `json:"time"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor"`
	Resource   string            `json:"resource,omitempty"`
	ResourceID string            `json:"resource_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Outcome    Outcome           `json:"outcome"`
	Details    map[string]string `json:"details,omitempty"`
}

type Logger struct {
	out zerolog.Logger
	now func() time.Time
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		out: logger.With().Str("component", "audit").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Log writes entry under the "audit" key. Failures log at warn.
func (l *Logger) Log(entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = l.now()
	}
	event := l.out.Info()
	if entry.Outcome == OutcomeFailure {
		event = l.out.Warn()
	}
	event.Interface("audit", entry).Msg(entry.Action)
}

func (l *Logger) LogSuccess(action, actor, resource, resourceID, ip string, details map[string]string) {
	l.Log(Entry{
		Action:     action,
		Actor:      actor,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         ip,
		Outcome:    OutcomeSuccess,
		Details:    details,
	})
}

func (l *Logger) LogFailure(action, actor, ip string, details map[string]string) {
	l.Log(Entry{Action: action, Actor: actor, IP: ip, Outcome: OutcomeFailure, Details: details})
}

// LogFromRequest audits an action by the authenticated caller of r.
func (l *Logger) LogFromRequest(r *http.Request, action, resource, resourceID string, outcome Outcome, details map[string]string) {
	actor := "unknown"
	if id, ok := auth.IdentityFromContext(r.Context()); ok && id.Email != "" {
		actor = id.Email
	}
	l.Log(Entry{
		Action:     action,
		Actor:      actor,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         ClientIP(r),
		Outcome:    outcome,
		Details:    details,
	})
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address. The result is for the audit trail only; rate limiting
// decides separately which proxies to trust.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
