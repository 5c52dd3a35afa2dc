package cashflow

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cooperrunyan/cashflow/internal/flows"
	"github.com/cooperrunyan/cashflow/status"
)

type guardFailure struct {
	outcome status.Outcome
	message string
	metric  MetricID
}

var guardFailures = map[flows.AuthorizeFailureKind]guardFailure{
	flows.AuthorizeFailureNoCredential: {status.NoCredential, "no credential provided", MetricAuthorizeNoCredential},
	flows.AuthorizeFailureMalformed:    {status.MalformedCredential, "credential is malformed", MetricAuthorizeMalformed},
	flows.AuthorizeFailureExpired:      {status.ExpiredCredential, "credential has expired", MetricAuthorizeExpired},
	flows.AuthorizeFailureCorrupt:      {status.CorruptCredential, "credential has no subject", MetricAuthorizeCorrupt},
}

// Authorize reads the credential header from r and returns either the
// authenticated claims or a finalized failure response, never both.
//
// Past a missing header every failure also clears the session cookie.
func (e *Engine) Authorize(r *http.Request) (*Claims, *status.Response) {
	values := r.Header.Values(e.config.Session.HeaderName)
	header := ""
	if len(values) > 0 {
		header = values[0]
	}
	return e.authorize(r.Context(), header, len(values) > 0, r.URL.Path)
}

// AuthorizeHeader runs the guard against a raw header value. present
// distinguishes an absent header from an empty one.
func (e *Engine) AuthorizeHeader(ctx context.Context, header string, present bool) (*Claims, *status.Response) {
	return e.authorize(ctx, header, present, "")
}

func (e *Engine) authorize(ctx context.Context, header string, present bool, path string) (*Claims, *status.Response) {
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}()

	res := flows.RunAuthorize(header, present, e.authorizeDeps())
	if res.Failure == flows.AuthorizeFailureNone {
		e.metricInc(MetricAuthorizeSuccess)
		return res.Claims, nil
	}

	failure, ok := guardFailures[res.Failure]
	if !ok {
		failure = guardFailure{status.InternalServerError, "authorization failed", MetricAuthorizeMalformed}
	}
	e.metricInc(failure.metric)

	b := status.Error(failure.outcome, failure.message)
	if res.Failure.ClearsCookie() {
		b.Cookie(e.ClearSessionCookie())
	}

	e.logger.DebugContext(ctx, "authorization rejected",
		slog.String("outcome", failure.outcome.String()),
		slog.String("path", path),
	)
	if e.config.Audit.GuardRejections {
		e.emitGuardAudit(ctx, failure.outcome, res.Err, path)
	}

	return nil, b.Finish()
}

func (e *Engine) authorizeDeps() flows.AuthorizeDeps {
	return flows.AuthorizeDeps{
		Scheme:    e.config.Session.Scheme,
		Validate:  e.tokens.Validate,
		IsExpired: e.tokens.IsExpired,
	}
}

func (e *Engine) emitGuardAudit(ctx context.Context, outcome status.Outcome, err error, path string) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: auditEventGuardRejected,
		IP:        ClientIPFromContext(ctx),
		Success:   false,
		Outcome:   outcome.String(),
	}
	if err != nil {
		event.Error = string(auditErrInvalidToken)
	}
	if path != "" {
		event.Metadata = map[string]string{"path": path}
	}
	e.audit.Emit(ctx, event)
}
