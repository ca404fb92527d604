// Package pipeline maps deal statuses to kanban columns. Each contact
// profile has its own ordered list of statuses; validation is strict
// against the profile's own pipeline.
package pipeline

import (
	"artisancrm/pkg/models"
)

// Status identifiers across all profile pipelines
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusWaiting    = "waiting"
	StatusDone       = "done"
	StatusQuote      = "quote"
	StatusFollowup   = "followup"
	StatusWon        = "won"
	StatusLost       = "lost"
	StatusOrdered    = "ordered"
	StatusReceived   = "received"
	StatusArchived   = "archived"
)

// Column is a named status bucket used for board rendering
type Column struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DealCard is one deal with its contact, as rendered on the board
type DealCard struct {
	Deal    models.Deal    `json:"deal"`
	Contact models.Contact `json:"contact"`
}

var profileColumns = map[models.ContactType][]Column{
	models.ContactTypeClient: {
		{ID: StatusNew, Label: "Nouveaux messages"},
		{ID: StatusInProgress, Label: "En cours"},
		{ID: StatusWaiting, Label: "En attente"},
		{ID: StatusDone, Label: "Facturé / Clôturé"},
	},
	models.ContactTypeProspect: {
		{ID: StatusNew, Label: "Nouveaux prospects"},
		{ID: StatusQuote, Label: "Devis en cours"},
		{ID: StatusFollowup, Label: "Relance"},
		{ID: StatusWon, Label: "Gagné"},
		{ID: StatusLost, Label: "Perdu"},
	},
	models.ContactTypeFournisseur: {
		{ID: StatusNew, Label: "Nouveaux"},
		{ID: StatusOrdered, Label: "Commandé"},
		{ID: StatusReceived, Label: "Reçu"},
		{ID: StatusArchived, Label: "Archivé"},
	},
	models.ContactTypeAutre: {
		{ID: StatusNew, Label: "Nouveaux"},
		{ID: StatusInProgress, Label: "En cours"},
		{ID: StatusDone, Label: "Clôturé"},
	},
}

// ClosedStatuses are the terminal statuses; a deal in one of these is
// reopened (reset to "new") when a new inbound message arrives.
var ClosedStatuses = []string{StatusDone, StatusWon, StatusLost, StatusArchived}

// Columns returns the ordered kanban columns for a profile.
// Unknown profiles fall back to the client pipeline.
func Columns(profile models.ContactType) []Column {
	cols, ok := profileColumns[profile]
	if !ok {
		cols = profileColumns[models.ContactTypeClient]
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// ValidStatus reports whether status belongs to the profile's own pipeline
func ValidStatus(profile models.ContactType, status string) bool {
	for _, col := range Columns(profile) {
		if col.ID == status {
			return true
		}
	}
	return false
}

// KnownStatus reports whether status belongs to any profile's pipeline
func KnownStatus(status string) bool {
	_, ok := globalStatuses()[status]
	return ok
}

// GlobalStatuses returns the set of statuses across all profiles, sorted
// by first appearance in the client, prospect, fournisseur, autre order.
func GlobalStatuses() []string {
	seen := make(map[string]bool)
	var out []string
	for _, profile := range []models.ContactType{
		models.ContactTypeClient,
		models.ContactTypeProspect,
		models.ContactTypeFournisseur,
		models.ContactTypeAutre,
	} {
		for _, col := range profileColumns[profile] {
			if !seen[col.ID] {
				seen[col.ID] = true
				out = append(out, col.ID)
			}
		}
	}
	return out
}

func globalStatuses() map[string]bool {
	set := make(map[string]bool)
	for _, cols := range profileColumns {
		for _, col := range cols {
			set[col.ID] = true
		}
	}
	return set
}

// IsClosed reports whether status is terminal for any pipeline
func IsClosed(status string) bool {
	for _, s := range ClosedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Classify buckets deal cards into the profile's columns. Deals whose
// status does not belong to the profile's pipeline land in the first
// column, matching how the board always has somewhere to show a card.
func Classify(profile models.ContactType, cards []DealCard) map[string][]DealCard {
	cols := Columns(profile)
	buckets := make(map[string][]DealCard, len(cols))
	for _, col := range cols {
		buckets[col.ID] = []DealCard{}
	}
	fallback := cols[0].ID
	for _, card := range cards {
		id := card.Deal.Status
		if _, ok := buckets[id]; !ok {
			id = fallback
		}
		buckets[id] = append(buckets[id], card)
	}
	return buckets
}
