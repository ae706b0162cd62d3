package reconciler

import (
	"fmt"
	"slices"

	"github.com/gosuda/boardsync/internal/domain"
)

func (r *Reconciler) apply(ch domain.Change) error {
	switch ch.Table {
	case domain.TableBoards:
		return r.applyBoard(ch)
	case domain.TableColumns:
		return r.applyColumn(ch)
	case domain.TableCards:
		return r.applyCard(ch)
	case domain.TableCardLabels:
		return r.applyCardLabel(ch)
	case domain.TableCardAssignees:
		return r.applyCardAssignee(ch)
	default:
		return fmt.Errorf("reconciler: unknown table %q", ch.Table)
	}
}

func (r *Reconciler) applyBoard(ch domain.Change) error {
	var b domain.Board
	if err := ch.Decode(&b); err != nil {
		return err
	}

	switch ch.Type {
	case domain.EventDelete:
		r.cache.RemoveBoard(b.ID)
	case domain.EventUpdate:
		if r.inFlight(b.ID) {
			return r.deferUntilSettled(b.ID, ch)
		}
		r.cache.UpdateBoard(b.ID, domain.BoardPatch{Title: &b.Title, Description: b.Description})
	}
	return nil
}

func (r *Reconciler) applyColumn(ch domain.Change) error {
	var col domain.Column
	if err := ch.Decode(&col); err != nil {
		return err
	}

	switch ch.Type {
	case domain.EventInsert:
		if r.pendingCreation(domain.TableColumns, col.BoardID, col.Title) {
			return nil
		}
		r.cache.UpsertColumn(&col)

	case domain.EventUpdate:
		if r.inFlight(col.ID) {
			return r.deferUntilSettled(col.ID, ch)
		}
		if _, ok := r.cache.Column(col.ID); !ok {
			if r.cache.Tombstoned(col.ID) {
				return nil
			}
			return anomaly(ch, col.ID)
		}
		r.cache.UpsertColumn(&col)

	case domain.EventDelete:
		if existing, ok := r.cache.Column(col.ID); ok {
			for _, card := range existing.Cards {
				r.cache.Tombstone(card.ID)
			}
		}
		r.cache.RemoveColumn(col.ID)
		r.cache.Tombstone(col.ID)
	}
	return nil
}

func (r *Reconciler) applyCard(ch domain.Change) error {
	var card domain.Card
	if err := ch.Decode(&card); err != nil {
		return err
	}

	switch ch.Type {
	case domain.EventInsert:
		if r.pendingCreation(domain.TableCards, card.ColumnID, card.Title) {
			return nil
		}
		return r.upsertCard(ch, &card)

	case domain.EventUpdate:
		if r.inFlight(card.ID) {
			return r.deferUntilSettled(card.ID, ch)
		}
		if _, ok := r.cache.Card(card.ID); !ok {
			if r.cache.Tombstoned(card.ID) {
				return nil
			}
			return anomaly(ch, card.ID)
		}
		return r.upsertCard(ch, &card)

	case domain.EventDelete:
		r.cache.RemoveCard(card.ID)
		r.cache.Tombstone(card.ID)
	}
	return nil
}

// upsertCard reports a row naming a column the cache does not know. Rows for
// deleted cards or columns are dropped silently.
func (r *Reconciler) upsertCard(ch domain.Change, card *domain.Card) error {
	if r.cache.UpsertCard(card) || r.cache.Tombstoned(card.ID) || r.cache.Tombstoned(card.ColumnID) {
		return nil
	}
	if _, ok := r.cache.Column(card.ColumnID); !ok {
		return anomaly(ch, card.ID)
	}
	return nil
}

func (r *Reconciler) applyCardLabel(ch domain.Change) error {
	var row domain.CardLabel
	if err := ch.Decode(&row); err != nil {
		return err
	}
	if r.inFlight(row.CardID) {
		return r.deferUntilSettled(row.CardID, ch)
	}
	card, ok := r.cache.Card(row.CardID)
	if !ok {
		return anomaly(ch, row.CardID)
	}
	if card.Labels == nil {
		// Not loaded yet; the next full load brings the collection.
		return nil
	}

	i := slices.IndexFunc(card.Labels, func(l domain.Label) bool { return l.ID == row.LabelID })
	switch {
	case ch.Type == domain.EventDelete && i >= 0:
		r.cache.SetCardLabels(card.ID, slices.Delete(slices.Clone(card.Labels), i, i+1))
	case ch.Type != domain.EventDelete && i < 0:
		r.cache.SetCardLabels(card.ID, append(slices.Clone(card.Labels), r.boardLabel(row.LabelID)))
	}
	return nil
}

func (r *Reconciler) applyCardAssignee(ch domain.Change) error {
	var row domain.CardAssignee
	if err := ch.Decode(&row); err != nil {
		return err
	}
	if r.inFlight(row.CardID) {
		return r.deferUntilSettled(row.CardID, ch)
	}
	card, ok := r.cache.Card(row.CardID)
	if !ok {
		return anomaly(ch, row.CardID)
	}
	if card.Assignees == nil {
		return nil
	}

	i := slices.IndexFunc(card.Assignees, func(u domain.User) bool { return u.ID == row.UserID })
	switch {
	case ch.Type == domain.EventDelete && i >= 0:
		r.cache.SetCardAssignees(card.ID, slices.Delete(slices.Clone(card.Assignees), i, i+1))
	case ch.Type != domain.EventDelete && i < 0:
		r.cache.SetCardAssignees(card.ID, append(slices.Clone(card.Assignees), domain.User{ID: row.UserID}))
	}
	return nil
}

// boardLabel resolves a label ID against the open board's label set.
func (r *Reconciler) boardLabel(id string) domain.Label {
	if b := r.cache.Board(); b != nil {
		for _, l := range b.Labels {
			if l.ID == id {
				return l
			}
		}
	}
	return domain.Label{ID: id}
}

func (r *Reconciler) inFlight(id domain.ID) bool {
	return r.pending != nil && r.pending.InFlight(id)
}

func (r *Reconciler) pendingCreation(table domain.Table, parentID domain.ID, title string) bool {
	return r.pending != nil && r.pending.PendingCreation(table, parentID, title)
}

func anomaly(ch domain.Change, id domain.ID) error {
	return fmt.Errorf("reconciler: %s %s %s: %w", ch.Type, ch.Table, id, domain.ErrReconciliationAnomaly)
}
