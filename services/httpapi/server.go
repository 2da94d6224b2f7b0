// Package httpapi is the robot's HTTP control surface: GET endpoints for
// each action, rangefinder reads, and a websocket stream of range samples.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"robotcode-go/drivers/tof"
	"robotcode-go/errcode"
	"robotcode-go/services/drive"
	"robotcode-go/services/ranging"
)

// Driver executes actions; *drive.Controller implements it.
type Driver interface {
	Execute(ctx context.Context, a drive.Action) error
	Stop()
}

// Ranger reads the rangefinder; *ranging.Service implements it.
type Ranger interface {
	Distance(ctx context.Context) (int, error)
	Measurement(ctx context.Context) (tof.RangingResult, error)
	Subscribe() *ranging.Subscription
}

// Server holds the handlers' dependencies.
type Server struct {
	drv    Driver
	rng    Ranger
	logger *zap.Logger
}

// New creates a Server. rng may be nil, in which case the range endpoints
// answer 503.
func New(drv Driver, rng Ranger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{drv: drv, rng: rng, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Get("/drive", s.action(func(r *http.Request) (drive.Action, error) {
		ms, err := intParam(r, "duration", true)
		if err != nil {
			return drive.Action{}, err
		}
		return drive.Action{
			Command:   drive.CmdDrive,
			Direction: r.URL.Query().Get("direction"),
			Duration:  time.Duration(ms) * time.Millisecond,
		}, nil
	}))
	r.Get("/turn", s.action(func(r *http.Request) (drive.Action, error) {
		deg, err := intParam(r, "degree", true)
		if err != nil {
			return drive.Action{}, err
		}
		return drive.Action{Command: drive.CmdTurn, Direction: r.URL.Query().Get("direction"), Degrees: deg}, nil
	}))
	r.Get("/pause", s.action(func(r *http.Request) (drive.Action, error) {
		ms, err := intParam(r, "duration", false)
		return drive.Action{Command: drive.CmdPause, Duration: time.Duration(ms) * time.Millisecond}, err
	}))
	r.Get("/spin", s.action(func(r *http.Request) (drive.Action, error) {
		ms, err := intParam(r, "duration", true)
		return drive.Action{Command: drive.CmdSpin, Duration: time.Duration(ms) * time.Millisecond}, err
	}))
	r.Get("/follow_line", s.action(func(r *http.Request) (drive.Action, error) {
		return drive.Action{Command: drive.CmdFollowLine}, nil
	}))
	r.Get("/stop", s.action(func(r *http.Request) (drive.Action, error) {
		return drive.Action{Command: drive.CmdStop}, nil
	}))

	r.Get("/distance", s.distance)
	r.Get("/measurement", s.measurement)
	r.Get("/range/stream", s.stream)
	return r
}

// ActionView is the reply shape for one executed action. Durations and
// distances are in seconds and metres.
type ActionView struct {
	ID        string   `json:"id"`
	Command   string   `json:"command"`
	Direction string   `json:"direction,omitempty"`
	Distance  *float64 `json:"distance,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	Degrees   int      `json:"degrees,omitempty"`
}

// ActionsResponse wraps executed actions.
type ActionsResponse struct {
	Actions []ActionView `json:"actions"`
}

func (*ActionsResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// View renders a the way the control server reports it.
func View(a drive.Action) ActionView {
	v := ActionView{ID: uuid.NewString(), Command: string(a.Command)}
	secs := a.Duration.Seconds()
	switch a.Command {
	case drive.CmdDrive:
		// One second of driving is reported as one metre.
		v.Direction = a.Direction
		v.Distance = &secs
	case drive.CmdTurn:
		v.Command = "turn_" + a.Direction
		v.Degrees = a.Degrees
		if v.Degrees == 0 {
			v.Degrees = drive.DefaultDegrees
		}
	case drive.CmdPause, drive.CmdSpin:
		v.Duration = &secs
	}
	return v
}

func (s *Server) action(parse func(r *http.Request) (drive.Action, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := parse(r)
		if err == nil {
			err = a.Validate()
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if a.Command == drive.CmdStop {
			s.drv.Stop()
		} else if err := s.drv.Execute(r.Context(), a); err != nil {
			s.fail(w, r, err)
			return
		}
		_ = render.Render(w, r, &ActionsResponse{Actions: []ActionView{View(a)}})
	}
}

// DistanceResponse is the /distance reply; DistanceMM is -1 with no object.
type DistanceResponse struct {
	DistanceMM int `json:"distance_mm"`
}

func (s *Server) distance(w http.ResponseWriter, r *http.Request) {
	if s.rng == nil {
		s.fail(w, r, &errcode.E{C: errcode.NotReady, Op: "httpapi.distance", Msg: "no rangefinder"})
		return
	}
	d, err := s.rng.Distance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, DistanceResponse{DistanceMM: d})
}

func (s *Server) measurement(w http.ResponseWriter, r *http.Request) {
	if s.rng == nil {
		s.fail(w, r, &errcode.E{C: errcode.NotReady, Op: "httpapi.measurement", Msg: "no rangefinder"})
		return
	}
	m, err := s.rng.Measurement(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, m)
}

// ErrResponse is the error body: {"detail": ..., "code": ...}.
type ErrResponse struct {
	Err    error  `json:"-"`
	Status int    `json:"-"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

// ErrFor maps err to a response using its errcode.
func ErrFor(err error) *ErrResponse {
	c := errcode.Of(err)
	detail := err.Error()
	if e, ok := err.(*errcode.E); ok && e.Msg != "" {
		detail = e.Msg
	}
	return &ErrResponse{Err: err, Status: HTTPStatus(c), Detail: detail, Code: string(c)}
}

// HTTPStatus maps a code to the status the control server replies with.
func HTTPStatus(c errcode.Code) int {
	switch c {
	case errcode.OK:
		return http.StatusOK
	case errcode.InvalidParams, errcode.InvalidDirection, errcode.UnknownCommand:
		return http.StatusBadRequest
	case errcode.Busy:
		return http.StatusConflict
	case errcode.Unsupported:
		return http.StatusNotImplemented
	case errcode.Timeout:
		return http.StatusGatewayTimeout
	case errcode.Canceled:
		return 499
	case errcode.NotReady, errcode.QueryFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrFor(err)
	if resp.Status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	_ = render.Render(w, r, resp)
}

func intParam(r *http.Request, name string, required bool) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		if required {
			return 0, &errcode.E{C: errcode.InvalidParams, Op: "httpapi", Msg: "missing " + name}
		}
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "httpapi", Msg: "invalid " + name}
	}
	return n, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("req_id", middleware.GetReqID(r.Context())),
		)
	})
}
