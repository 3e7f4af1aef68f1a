package service

import (
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
)

// ticketTransitions lists the statuses reachable from each status. Picked_Up
// and Cancelled have no exits.
var ticketTransitions = map[model.TicketStatus][]model.TicketStatus{
	model.StatusQueue:       {model.StatusDiagnosing, model.StatusCancelled},
	model.StatusDiagnosing:  {model.StatusWaitingPart, model.StatusInProgress, model.StatusCompleted, model.StatusCancelled},
	model.StatusWaitingPart: {model.StatusInProgress, model.StatusDiagnosing, model.StatusCancelled},
	model.StatusInProgress:  {model.StatusWaitingPart, model.StatusDiagnosing, model.StatusCompleted, model.StatusCancelled},
	model.StatusCompleted:   {model.StatusPickedUp},
}

// openStatuses are the statuses in which a technician still owns the device.
var openStatuses = []model.TicketStatus{
	model.StatusQueue,
	model.StatusDiagnosing,
	model.StatusWaitingPart,
	model.StatusInProgress,
}

func CanTransition(from, to model.TicketStatus) bool {
	for _, s := range ticketTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isKnownStatus(s model.TicketStatus) bool {
	if _, ok := ticketTransitions[s]; ok {
		return true
	}
	return s == model.StatusPickedUp || s == model.StatusCancelled
}

// acceptsChanges reports whether parts and fees may still be edited.
func acceptsChanges(s model.TicketStatus) bool {
	switch s {
	case model.StatusCompleted, model.StatusPickedUp, model.StatusCancelled:
		return false
	}
	return true
}

// stamp sets the timestamp that belongs to entering status. Existing
// timestamps are never overwritten.
func stamp(t *model.ServiceTicket, status model.TicketStatus, at time.Time) {
	var slot **time.Time
	switch status {
	case model.StatusDiagnosing:
		slot = &t.Timestamps.DiagnosedAt
	case model.StatusCompleted:
		slot = &t.Timestamps.CompletedAt
	case model.StatusPickedUp:
		slot = &t.Timestamps.PickedUpAt
	default:
		return
	}
	if *slot == nil {
		*slot = &at
	}
}
