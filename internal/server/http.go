package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/game/progression"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
	"github.com/thraizz/wildwood-server-go/internal/session"
)

// maxSaveBytes caps uploaded saves.
const maxSaveBytes = 4 << 20

// API serves the game over HTTP and websockets.
type API struct {
	sessions *session.Manager
	hub      *Hub
	logger   *zap.Logger
}

// NewAPI wires the HTTP handlers. The hub may be nil, which disables the
// websocket route.
func NewAPI(sessions *session.Manager, hub *Hub, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{sessions: sessions, hub: hub, logger: logger}
	if hub != nil {
		hub.SetHandler(a.handleMessage)
	}
	return a
}

// Router returns the HTTP routes.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.logRequests)

	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)
	r.HandleFunc("/sessions", a.createSession).Methods(http.MethodPost)

	s := r.PathPrefix("/sessions/{id}").Subrouter()
	s.HandleFunc("", a.getState).Methods(http.MethodGet)
	s.HandleFunc("", a.deleteSession).Methods(http.MethodDelete)
	s.HandleFunc("/presentation", a.presentation).Methods(http.MethodGet)
	s.HandleFunc("/setup", a.lifecycle(func(ctx context.Context, e *game.Engine) error {
		return e.Setup(ctx)
	})).Methods(http.MethodPost)
	s.HandleFunc("/run", a.startRun).Methods(http.MethodPost)
	s.HandleFunc("/intro/ack", a.lifecycle(func(ctx context.Context, e *game.Engine) error {
		return e.AcknowledgeIntro(ctx)
	})).Methods(http.MethodPost)
	s.HandleFunc("/play", a.lifecycle(func(ctx context.Context, e *game.Engine) error {
		return e.BeginPlay(ctx)
	})).Methods(http.MethodPost)
	s.HandleFunc("/retry", a.lifecycle(func(ctx context.Context, e *game.Engine) error {
		return e.RetryRun(ctx)
	})).Methods(http.MethodPost)
	s.HandleFunc("/review", a.lifecycle(func(ctx context.Context, e *game.Engine) error {
		return e.BeginDeckReview(ctx)
	})).Methods(http.MethodPost)
	s.HandleFunc("/review/confirm", a.confirmReview).Methods(http.MethodPost)
	s.HandleFunc("/reward", a.chooseReward).Methods(http.MethodPost)
	s.HandleFunc("/reset", a.lifecycle(func(ctx context.Context, e *game.Engine) error {
		return e.HardReset(ctx)
	})).Methods(http.MethodPost)
	s.HandleFunc("/actions", a.applyAction).Methods(http.MethodPost)
	s.HandleFunc("/end-day", a.endDay).Methods(http.MethodPost)
	s.HandleFunc("/save", a.save).Methods(http.MethodGet, http.MethodPost)
	s.HandleFunc("/load", a.load).Methods(http.MethodPost)
	if a.hub != nil {
		s.HandleFunc("/ws", a.serveWS).Methods(http.MethodGet)
	}
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hijacked websocket connections need the original writer.
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func httpStatus(err error) int {
	switch codeOf(err) {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusServiceUnavailable
	case codes.Aborted, codes.FailedPrecondition:
		return http.StatusConflict
	case codes.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := a.sessions.Resume(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, r, err)
		return nil, false
	}
	return s, true
}

// decodeOrFail reads an optional JSON body. An empty body leaves v alone.
func (a *API) decodeOrFail(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxSaveBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

// SessionView is the body returned for session reads and lifecycle calls.
type SessionView struct {
	ID        string           `json:"id"`
	KeepLimit int              `json:"keepLimit"`
	State     *state.GameState `json:"state"`
}

func view(s *session.Session) SessionView {
	return SessionView{ID: s.ID, KeepLimit: s.Engine.KeepLimit(), State: s.Engine.State()}
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": a.sessions.Count()})
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.sessions.Create()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view(s))
}

func (a *API) getState(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := a.sessions.Get(id); !ok {
		a.writeError(w, r, session.ErrNotFound)
		return
	}
	a.sessions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// Presentation is the banner and animation currently on screen.
type Presentation struct {
	Banner    any `json:"banner,omitempty"`
	Animation any `json:"animation,omitempty"`
}

func (a *API) presentation(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var p Presentation
	if b, ok := s.Engine.Banner(); ok {
		p.Banner = b
	}
	if an, ok := s.Engine.Animation(); ok {
		p.Animation = an
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) lifecycle(fn func(context.Context, *game.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.session(w, r)
		if !ok {
			return
		}
		if err := fn(r.Context(), s.Engine); err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view(s))
	}
}

func (a *API) startRun(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var opts game.RunOptions
	if !a.decodeOrFail(w, r, &opts) {
		return
	}
	if s.Engine.State().Status == state.StatusLanding {
		if err := s.Engine.Setup(r.Context()); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	if err := s.Engine.StartRun(r.Context(), opts); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}

type reviewRequest struct {
	Keep []int `json:"keep"`
}

func (a *API) confirmReview(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if !a.decodeOrFail(w, r, &req) {
		return
	}
	if err := s.Engine.ConfirmDeckReview(r.Context(), req.Keep); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}

type rewardRequest struct {
	Kind progression.RewardKind `json:"kind"`
}

func (a *API) chooseReward(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req rewardRequest
	if !a.decodeOrFail(w, r, &req) {
		return
	}
	if err := s.Engine.ChooseReward(r.Context(), req.Kind); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(s))
}

// ActionResponse carries an action result with the state after it.
type ActionResponse struct {
	Result game.ActionResult `json:"result"`
	State  *state.GameState  `json:"state"`
}

func (a *API) applyAction(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var action game.Action
	if !a.decodeOrFail(w, r, &action) {
		return
	}
	res := s.Engine.Apply(r.Context(), action)
	writeJSON(w, http.StatusOK, ActionResponse{Result: res, State: s.Engine.State()})
}

// TurnResponse carries a turn report with the state after it.
type TurnResponse struct {
	Report game.TurnReport `json:"report"`
	State  *state.GameState `json:"state"`
}

func (a *API) endDay(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	report, err := s.Engine.EndDay(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TurnResponse{Report: report, State: s.Engine.State()})
}

func (a *API) save(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	data, err := s.Engine.Save()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.ID+`.json"`)
	_, _ = w.Write(data)
}

// LoadResponse describes how a save was repaired on load.
type LoadResponse struct {
	Repaired bool             `json:"repaired"`
	Dropped  []string         `json:"dropped,omitempty"`
	State    *state.GameState `json:"state"`
}

func (a *API) load(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSaveBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rep, err := s.Engine.Load(r.Context(), raw)
	if err != nil {
		// Anything the rehydrator refuses is the caller's fault.
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, LoadResponse{Repaired: rep.Repaired(), Dropped: rep.Dropped, State: s.Engine.State()})
}

func (a *API) serveWS(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.hub.ServeWS(w, r, s.ID)
}

// handleMessage answers websocket requests with the same semantics as the
// HTTP routes.
func (a *API) handleMessage(ctx context.Context, sessionID string, msg WSMessage) []byte {
	s, err := a.sessions.Resume(ctx, sessionID)
	if err != nil {
		reply, _ := newMessage(MsgError, sessionID, errorBody{Error: err.Error()})
		return reply
	}

	var (
		kind = MsgResult
		body any
	)
	switch msg.Type {
	case MsgAction:
		var action game.Action
		if err := json.Unmarshal(msg.Data, &action); err != nil {
			kind, body = MsgError, errorBody{Error: err.Error()}
			break
		}
		body = ActionResponse{Result: s.Engine.Apply(ctx, action), State: s.Engine.State()}
	case MsgEndDay:
		report, err := s.Engine.EndDay(ctx)
		if err != nil {
			kind, body = MsgError, errorBody{Error: err.Error()}
			break
		}
		body = TurnResponse{Report: report, State: s.Engine.State()}
	case MsgState:
		kind, body = MsgState, view(s)
	default:
		kind, body = MsgError, errorBody{Error: "unknown message type " + msg.Type}
	}

	reply, err := newMessage(kind, sessionID, body)
	if err != nil {
		a.logger.Error("encode websocket reply", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	return reply
}
