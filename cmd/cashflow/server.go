package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cooperrunyan/cashflow"
	"github.com/cooperrunyan/cashflow/middleware"
	"github.com/cooperrunyan/cashflow/status"
)

const maxBodyBytes = 1 << 16

type server struct {
	engine *cashflow.Engine
	store  *memStore
	logger *slog.Logger
}

func newServer(engine *cashflow.Engine, store *memStore, logger *slog.Logger) *server {
	return &server{engine: engine, store: store, logger: logger}
}

// routes wires the API. metrics may be nil.
func (s *server) routes(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /me", middleware.Guard(s.engine)(http.HandlerFunc(s.handleMe)))
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return middleware.ClientIP(mux)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type meData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

var outcomeMessages = map[status.Outcome]string{
	status.BadInput:            "email and password are required",
	status.BadLoginCredentials: "invalid email or password",
	status.RateLimited:         "too many failed logins",
	status.Conflict:            "an account with this email already exists",
	status.InternalServerError: "internal server error",
}

func (s *server) decode(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.write(w, status.Error(status.BadInput, "request body must be a JSON object").Finish())
		return req, false
	}
	if req.Email == "" || req.Password == "" {
		b := status.Error(status.BadInput, outcomeMessages[status.BadInput])
		// Never echo the password.
		if req.Email != "" {
			b.Input(req.Email)
		}
		s.write(w, b.Finish())
		return req, false
	}
	req.Email = normalizeEmail(req.Email)
	return req, true
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	res, err := s.engine.Register(r.Context(), req.Email, req.Password, s.store)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.write(w, status.Success(status.Created, "account created").
		Data(sessionData{UserID: res.SubjectID, Email: res.Email, Token: res.Token}).
		Cookie(s.engine.SessionCookie(res.Token)).
		Finish())
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password, s.store)
	if err != nil {
		if errors.Is(err, cashflow.ErrLoginRateLimited) {
			b := status.Error(status.RateLimited, outcomeMessages[status.RateLimited])
			if d := s.engine.LoginRetryAfter(r.Context(), req.Email); d > 0 {
				b.Header("Retry-After", strconv.Itoa(int(d.Round(time.Second)/time.Second)))
			}
			s.write(w, b.Finish())
			return
		}
		s.fail(w, r, err)
		return
	}

	s.write(w, status.Success(status.GoodLogin, "logged in").
		Data(sessionData{UserID: res.SubjectID, Email: res.Email, Token: res.Token}).
		Cookie(s.engine.SessionCookie(res.Token)).
		Finish())
}

// handleLogout only clears the cookie; issued tokens stay valid until exp.
func (s *server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.write(w, status.Success(status.Ok, "logged out").
		Cookie(s.engine.ClearSessionCookie()).
		Finish())
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := cashflow.ClaimsFromContext(r.Context())
	if !ok {
		s.write(w, status.Error(status.InternalServerError, outcomeMessages[status.InternalServerError]).Finish())
		return
	}

	data := meData{UserID: claims.UserID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		data.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	s.write(w, status.Success(status.Authenticated, "authenticated").Data(data).Finish())
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	outcome := cashflow.OutcomeFor(err)
	if outcome == status.InternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	msg, ok := outcomeMessages[outcome]
	if !ok {
		msg = outcome.String()
	}
	s.write(w, status.Error(outcome, msg).Finish())
}

func (s *server) write(w http.ResponseWriter, resp *status.Response) {
	if err := resp.Write(w); err != nil {
		s.logger.Warn("response write failed", slog.Any("error", err))
	}
}
