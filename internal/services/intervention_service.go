package services

import "time"

// InterventionStore abstracts persistence for delivered interventions.
type InterventionStore interface {
	GetIntervention(id string) (*InterventionRecord, error)
	ListInterventions(userID string) ([]InterventionRecord, error)
	MarkInterventionViewed(id string) error
	SetInterventionFeedback(id string, score int, at time.Time) error
}

// InterventionService covers the read/feedback surface for delivered
// coaching messages.
type InterventionService struct {
	store InterventionStore
	now   func() time.Time
}

func NewInterventionService(store InterventionStore) *InterventionService {
	return &InterventionService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a user's interventions, most recent first, ranked by
// created time (the store's canonical order).
func (s *InterventionService) List(userID string) ([]InterventionRecord, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	return s.store.ListInterventions(userID)
}

// MarkViewed records that the user opened the message. Idempotent.
func (s *InterventionService) MarkViewed(userID, id string) error {
	iv, err := s.owned(userID, id)
	if err != nil {
		return err
	}
	if iv.Viewed {
		return nil
	}
	return s.store.MarkInterventionViewed(id)
}

// SubmitFeedback stores a 1-5 usefulness rating for a delivered message.
func (s *InterventionService) SubmitFeedback(userID, id string, score int) error {
	if score < 1 || score > 5 {
		return NewInvalidError("feedback score must be between 1 and 5")
	}
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	return s.store.SetInterventionFeedback(id, score, s.now())
}

func (s *InterventionService) owned(userID, id string) (*InterventionRecord, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	iv, err := s.store.GetIntervention(id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, NewNotFoundError("intervention not found")
	}
	if iv.UserID != userID {
		return nil, NewForbiddenError("forbidden")
	}
	return iv, nil
}
