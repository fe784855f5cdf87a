package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"

	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/pipeline"
)

const maxRequestBytes = 1 << 20

// ResultStore persists hydrolink records for later lookup.
type ResultStore interface {
	Save(ctx context.Context, hl domain.Hydrolink) error
	Get(ctx context.Context, sourceID string, version domain.NHDVersion) (domain.Hydrolink, error)
}

// API serves on-demand hydrolinking.
type API struct {
	linker        pipeline.Linker
	store         ResultStore
	defaults      domain.Options
	defaultBuffer int
	logger        *slog.Logger
}

// NewAPI creates the hydrolink API. store may be nil, in which case results
// are not persisted and the lookup route is not served.
func NewAPI(linker pipeline.Linker, store ResultStore, defaults domain.Options, defaultBuffer int, logger *slog.Logger) *API {
	return &API{
		linker:        linker,
		store:         store,
		defaults:      defaults,
		defaultBuffer: defaultBuffer,
		logger:        logger,
	}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/hydrolink", a.handleLink)
	if a.store != nil {
		mux.HandleFunc("GET /v1/hydrolinks/{id}", a.handleGet)
	}
}

// handleLink hydrolinks the posted observation. Points that cannot be linked
// are answered with 422 and the failed record.
func (a *API) handleLink(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	obs, opts, err := pipeline.DecodeLinkRequest(body, "", a.defaultBuffer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := opts.Merge(a.defaults).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hl, err := a.linker.Link(r.Context(), obs, opts)
	if err != nil && r.Context().Err() != nil {
		writeError(w, http.StatusServiceUnavailable, r.Context().Err())
		return
	}

	if a.store != nil {
		if serr := a.store.Save(r.Context(), hl); serr != nil {
			a.logger.Error("save hydrolink failed", "source_id", hl.SourceID, "error", serr)
		}
	}

	if err != nil {
		a.logger.Info("point not hydrolinked", "source_id", obs.SourceID, "request_id", w.Header().Get(requestIDHeader), "error", err)
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, hl)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, hl)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	version := domain.NHDVersion(r.URL.Query().Get("nhd_version"))
	if version == "" {
		version = a.defaults.Version
	}

	hl, err := a.store.Get(r.Context(), r.PathValue("id"), version)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		a.logger.Error("load hydrolink failed", "source_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	default:
		sharedobs.WriteJSON(w, http.StatusOK, hl)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

const requestIDHeader = "X-Request-ID"

// requestID echoes the caller's request id or assigns a new one.
func requestID(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}
