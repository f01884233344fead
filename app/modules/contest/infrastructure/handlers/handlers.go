// Package contesthandlers serves contest scoreboards over HTTP.
package contesthandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	contestexport "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/export"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/validation"
	"github.com/go-chi/chi/v5"
)

// ContestReader is the read side of the contest service.
type ContestReader interface {
	Get(ctx context.Context, k documentdomain.DocKey) (*contestdomain.Contest, error)
	StatusText(c *contestdomain.Contest) contestdomain.Phase
	GetScoreboard(ctx context.Context, k documentdomain.DocKey, opts contestservice.ScoreboardOptions) (*contestdomain.Table, error)
}

// Handlers serves the contest routes.
type Handlers struct {
	contests ContestReader
	logger   *slog.Logger
}

// NewHandlers creates contest handlers.
func NewHandlers(contests ContestReader, logger *slog.Logger) *Handlers {
	return &Handlers{contests: contests, logger: logger}
}

// ScoreboardResponse is the JSON body of the scoreboard route.
type ScoreboardResponse struct {
	Title string               `json:"title"`
	Rule  string               `json:"rule"`
	Phase contestdomain.Phase  `json:"phase"`
	Table *contestdomain.Table `json:"table"`
}

// Routes mounts the contest routes on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/d/{domainId}/contest/{tid}", func(r chi.Router) {
		r.Get("/scoreboard", h.GetScoreboard)
		r.Get("/scoreboard/export/{format}", h.ExportScoreboard)
	})
}

// contestKey reads the contest address. Homework shares the routes through
// ?docType=homework.
func contestKey(r *http.Request) documentdomain.DocKey {
	docType := documentdomain.TypeContest
	if r.URL.Query().Get("docType") == "homework" {
		docType = documentdomain.TypeHomework
	}
	return documentdomain.DocKey{
		DomainID: chi.URLParam(r, "domainId"),
		DocType:  docType,
		DocID:    documentdomain.DocID(chi.URLParam(r, "tid")),
	}
}

// GetScoreboard renders the scoreboard as JSON.
func (h *Handlers) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	k := contestKey(r)
	c, err := h.contests.Get(r.Context(), k)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	table, err := h.contests.GetScoreboard(r.Context(), k, contestservice.ScoreboardOptions{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ScoreboardResponse{
		Title: c.Title,
		Rule:  c.Rule,
		Phase: h.contests.StatusText(c),
		Table: table,
	}); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode scoreboard", attr.Error(err))
	}
}

// ExportScoreboard renders the scoreboard as a file download.
func (h *Handlers) ExportScoreboard(w http.ResponseWriter, r *http.Request) {
	format, err := contestexport.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.writeError(w, r, validation.NewError("format", err.Error()))
		return
	}
	k := contestKey(r)
	table, err := h.contests.GetScoreboard(r.Context(), k, contestservice.ScoreboardOptions{IsExport: true})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := contestexport.Export(table, format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("scoreboard-%s.%s", k.DocID, format)))
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to write export", attr.Error(err))
	}
}

// StatusCode maps a service error to an HTTP status.
func StatusCode(err error) int {
	var (
		hidden   *contestservice.ContestScoreboardHiddenError
		notFound *contestservice.ContestNotFoundError
		verr     *validation.ValidationError
	)
	switch {
	case errors.As(err, &hidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Contest request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		msg = http.StatusText(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
