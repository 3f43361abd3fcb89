package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mongoadapter "github.com/Silicom-11/synaplink-engine/internal/adapters/mongo"
	redisadapter "github.com/Silicom-11/synaplink-engine/internal/adapters/redis"
	"github.com/Silicom-11/synaplink-engine/internal/domain"
	"github.com/Silicom-11/synaplink-engine/internal/history"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
	"github.com/Silicom-11/synaplink-engine/internal/pricing"
	"github.com/Silicom-11/synaplink-engine/internal/registry"
	"github.com/Silicom-11/synaplink-engine/internal/reservation"
)

type Handlers struct {
	engine   *reservation.Service
	registry *registry.Registry
	history  *history.Aggregator
	catalog  *mongoadapter.VenueCatalog // nil without Mongo
	idemp    *redisadapter.Idempotency  // nil without Redis
	logger   observability.Logger
}

func NewHandlers(engine *reservation.Service, reg *registry.Registry, agg *history.Aggregator, catalog *mongoadapter.VenueCatalog, idemp *redisadapter.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		registry: reg,
		history:  agg,
		catalog:  catalog,
		idemp:    idemp,
		logger:   logger,
	}
}

type cabinJSON struct {
	VenueID             string     `json:"venueId"`
	Number              int        `json:"number"`
	State               string     `json:"state"`
	ActiveReservationID *uuid.UUID `json:"activeReservationId,omitempty"`
	StateExpiresAt      *time.Time `json:"stateExpiresAt,omitempty"`
}

type reservationJSON struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"userId"`
	VenueID         string    `json:"venueId"`
	CabinNumbers    []int     `json:"cabinNumbers"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Price           string    `json:"price"`
	PriceCents      int64     `json:"priceCents"`
	Status          string    `json:"status"`
	PointsEarned    int       `json:"pointsEarned"`
	HoldDeadline    time.Time `json:"holdDeadline"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toReservationJSON(res domain.Reservation) reservationJSON {
	return reservationJSON{
		ID:              res.ID,
		UserID:          res.UserID,
		VenueID:         res.VenueID,
		CabinNumbers:    res.CabinNumbers,
		StartTime:       res.StartTime,
		EndTime:         res.EndTime,
		DurationMinutes: res.DurationMinutes,
		Price:           res.Price.Format(),
		PriceCents:      res.Price.Cents,
		Status:          string(res.Status),
		PointsEarned:    res.PointsEarned,
		HoldDeadline:    res.HoldDeadline,
		CreatedAt:       res.CreatedAt,
	}
}

// ListCabins serves the availability grid, optionally only the free
// cabins, with venue metadata when the catalog is wired.
func (h *Handlers) ListCabins(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueID")

	cabins := h.registry.List(venueID)
	onlyAvailable := r.URL.Query().Get("available") != ""
	out := make([]cabinJSON, 0, len(cabins))
	for _, c := range cabins {
		if onlyAvailable && c.State != domain.CabinFree {
			continue
		}
		out = append(out, cabinJSON{
			VenueID:             c.VenueID,
			Number:              c.Number,
			State:               string(c.State),
			ActiveReservationID: c.ActiveReservationID,
			StateExpiresAt:      c.StateExpiresAt,
		})
	}

	resp := map[string]any{"cabins": out}
	if h.catalog != nil {
		if venue, err := h.catalog.GetVenue(r.Context(), venueID); err == nil {
			resp["venue"] = venue
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.idemp != nil && key != "" {
		existing, err := h.idemp.Get(r.Context(), key)
		if err != nil {
			h.logger.WithError(err).Warn("idempotency lookup failed")
		} else if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(existing.Status)
			w.Write(existing.Body)
			return
		}
	}

	var req struct {
		UserID          string `json:"userId"`
		VenueID         string `json:"venueId"`
		CabinNumbers    []int  `json:"cabinNumbers"`
		DurationMinutes int    `json:"durationMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.engine.CreateHold(r.Context(), req.UserID, req.VenueID, req.CabinNumbers, req.DurationMinutes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	body, _ := json.Marshal(toReservationJSON(res))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(body)

	if h.idemp != nil && key != "" {
		if err := h.idemp.Set(r.Context(), key, redisadapter.StoredResponse{Status: http.StatusCreated, Body: body}); err != nil {
			h.logger.WithError(err).Warn("idempotency store failed")
		}
	}
}

func (h *Handlers) ConfirmHold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	res, err := h.engine.Confirm(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(res))
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.Cancel(r.Context(), id, req.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}

// ListReservations returns a user's history plus the derived stats in
// one payload, the way the profile page consumes it.
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	filter := history.ParseFilter(r.URL.Query().Get("filter"))
	search := r.URL.Query().Get("search")

	list, err := h.history.ListForUser(r.Context(), userID, filter, search)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	stats, err := h.history.StatsForUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]reservationJSON, 0, len(list))
	for _, res := range list {
		out = append(out, toReservationJSON(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reservations": out,
		"stats":        stats,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDuration):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":              err.Error(),
			"supportedDurations": pricing.Durations(),
		})
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "cabin no longer free, choose another cabin")
	case errors.Is(err, domain.ErrStaleReservationState):
		writeError(w, http.StatusConflict, "this reservation is no longer active")
	case errors.Is(err, domain.ErrNotOwnedByUser),
		errors.Is(err, domain.ErrNotHeldByReservation),
		errors.Is(err, domain.ErrNotOwnedByReservation):
		writeError(w, http.StatusForbidden, "operation not permitted")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
