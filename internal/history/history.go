// Package history is the read side of the engine: a user's reservation
// list with filtering and search, plus summary counters. Everything is
// recomputed from the store on each call so the numbers can never drift
// from the reservations themselves.
package history

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
	"github.com/Silicom-11/synaplink-engine/internal/store"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterCancelled Filter = "cancelled"
)

// ParseFilter maps a query-string value to a filter, defaulting to all.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(s)) {
	case FilterActive:
		return FilterActive
	case FilterCompleted:
		return FilterCompleted
	case FilterCancelled:
		return FilterCancelled
	default:
		return FilterAll
	}
}

func (f Filter) matches(status domain.ReservationStatus) bool {
	switch f {
	case FilterActive:
		return status.Active()
	case FilterCompleted:
		return status == domain.StatusCompleted
	case FilterCancelled:
		return status == domain.StatusCancelled
	default:
		return true
	}
}

type Stats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Completed    int `json:"completed"`
	Cancelled    int `json:"cancelled"`
	PointsEarned int `json:"pointsEarned"`
}

// VenueNamer resolves a venue id to its display name for search
// matching. Optional; without one the venue id itself is matched.
type VenueNamer interface {
	VenueName(ctx context.Context, venueID string) (string, error)
}

type Aggregator struct {
	store store.ReservationStore
	names VenueNamer
}

func NewAggregator(st store.ReservationStore, names VenueNamer) *Aggregator {
	return &Aggregator{store: st, names: names}
}

// ListForUser returns the user's reservations, newest first. A
// non-empty search term matches case-insensitively against the venue
// name, any cabin number, or the status label.
func (a *Aggregator) ListForUser(ctx context.Context, userID string, filter Filter, search string) ([]domain.Reservation, error) {
	all, err := a.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Reservation, 0, len(all))
	for _, res := range all {
		if !filter.matches(res.Status) {
			continue
		}
		if term != "" && !a.matchesSearch(ctx, res, term) {
			continue
		}
		out = append(out, res)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// StatsForUser derives the summary counters over the user's full
// history, ignoring any filter. Points accumulate across every
// reservation that ever earned them.
func (a *Aggregator) StatsForUser(ctx context.Context, userID string) (Stats, error) {
	all, err := a.store.ListByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	for _, res := range all {
		s.Total++
		switch {
		case res.Status.Active():
			s.Active++
		case res.Status == domain.StatusCompleted:
			s.Completed++
		case res.Status == domain.StatusCancelled:
			s.Cancelled++
		}
		s.PointsEarned += res.PointsEarned
	}
	return s, nil
}

func (a *Aggregator) matchesSearch(ctx context.Context, res domain.Reservation, term string) bool {
	if strings.Contains(strings.ToLower(a.venueName(ctx, res.VenueID)), term) {
		return true
	}
	for _, n := range res.CabinNumbers {
		if strings.Contains(strconv.Itoa(n), term) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(string(res.Status)), term)
}

func (a *Aggregator) venueName(ctx context.Context, venueID string) string {
	if a.names == nil {
		return venueID
	}
	name, err := a.names.VenueName(ctx, venueID)
	if err != nil || name == "" {
		return venueID
	}
	return name
}
