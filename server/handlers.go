package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maxverstappen583/Tribute/config"
	"github.com/maxverstappen583/Tribute/counter"
	"github.com/maxverstappen583/Tribute/page"
	"github.com/maxverstappen583/Tribute/telemetry"
	"github.com/maxverstappen583/Tribute/tribute"
)

// StatusReporter is implemented by the chat clients so /status can report them.
type StatusReporter interface {
	Platform() string
	Status() string
}

// Deps are the values the handlers need. Store may be nil when counting is disabled.
type Deps struct {
	Config   *config.Config
	Texts    tribute.Texts
	Store    counter.Store
	Renderer *page.Renderer
	Bots     []StatusReporter
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	cfg      *config.Config
	texts    tribute.Texts
	store    counter.Store
	renderer *page.Renderer
	bots     []StatusReporter
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(d Deps) *Handlers {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handlers{
		cfg:      cfg,
		texts:    d.Texts,
		store:    d.Store,
		renderer: d.Renderer,
		bots:     d.Bots,
	}
}

// HandleIndex renders the tribute page. GET counts a visit; HEAD only reads the count.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := telemetry.LoggerWithCorr(ctx)

	var count *int64
	if h.store != nil {
		var (
			n   int64
			err error
			op  = "increment"
		)
		if r.Method == http.MethodHead {
			op = "get"
			n, err = h.store.Get(ctx)
		} else {
			n, err = h.store.IncrementAndGet(ctx)
		}
		if err != nil {
			telemetry.IncCounterError(op)
			log.Warn("visit counter unavailable, rendering without count", slog.String("op", op), slog.Any("err", err), slog.String("component", "http"))
		} else {
			count = &n
			telemetry.SetVisitCount(n)
		}
	}

	d := page.Data{
		FriendName:    h.cfg.FriendName,
		YourName:      h.cfg.YourName,
		StartYear:     h.cfg.StartYear,
		EndYear:       h.cfg.EndYear,
		ImageURL:      h.cfg.EmbedImageURL,
		CommandName:   h.cfg.TributeCommand,
		CommandPrefix: h.cfg.CommandPrefix,
		Texts:         h.texts,
		Count:         count,
		Open:          r.URL.Query().Get("open"),
	}
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, d); err != nil {
		log.Error("render page", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	telemetry.IncPageView()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleRawThanks serves the composed thank-you text as plain text.
func (h *Handlers) HandleRawThanks(w http.ResponseWriter, r *http.Request) {
	h.writeRaw(w, "thanks", h.texts.Thanks)
}

// HandleRawGlory serves the composed remembrance text as plain text.
func (h *Handlers) HandleRawGlory(w http.ResponseWriter, r *http.Request) {
	h.writeRaw(w, "glory", h.texts.Glory)
}

func (h *Handlers) writeRaw(w http.ResponseWriter, kind, text string) {
	telemetry.IncRaw(kind)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// counterUnavailableMsg is reported in place of the store error, which may
// name a file path or a database address.
const counterUnavailableMsg = "storage unavailable"

type statusResponse struct {
	Status         string            `json:"status"`
	CounterBackend string            `json:"counter_backend"`
	Visits         *int64            `json:"visits"`
	CounterError   string            `json:"counter_error,omitempty"`
	Bots           map[string]string `json:"bots"`
}

// HandleStatus reports chat client states and the current count without counting a visit.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:         "ok",
		CounterBackend: h.cfg.CounterBackend,
		Bots:           make(map[string]string, len(h.bots)),
	}
	if h.store != nil {
		n, err := h.store.Get(r.Context())
		if err != nil {
			telemetry.IncCounterError("get")
			telemetry.LoggerWithCorr(r.Context()).Warn("status: visit counter unavailable", slog.Any("err", err), slog.String("component", "http"))
			resp.Status = "degraded"
			resp.CounterError = counterUnavailableMsg
		} else {
			resp.Visits = &n
		}
	}
	for _, b := range h.bots {
		resp.Bots[b.Platform()] = b.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
