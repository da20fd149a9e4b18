package services

import "time"

// AssessmentStore abstracts persistence for scored inventories. Raw item
// responses are never stored; only the derived trait scores are.
type AssessmentStore interface {
	AddTraitAssessment(a *TraitAssessment) error
	LatestTraits(userID string) (*TraitAssessment, error)
}

const instrumentTIPI = "TIPI"

// AssessmentService hosts the personality assessment workflow.
type AssessmentService struct {
	store AssessmentStore
	now   func() time.Time
	idGen func() string
}

func NewAssessmentService(store AssessmentStore) *AssessmentService {
	return &AssessmentService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: newRecordID,
	}
}

// Submit validates and scores a TIPI submission and persists the derived
// p01 and T-score representations.
func (s *AssessmentService) Submit(userID string, responses []TIPIResponse) (*TraitAssessment, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	scores, err := ScoreTIPI(responses)
	if err != nil {
		return nil, err
	}

	assessment := &TraitAssessment{
		ID:             s.idGen(),
		UserID:         userID,
		Instrument:     instrumentTIPI,
		TraitsP01:      scores.P01,
		TraitsT:        scores.T,
		AdministeredAt: s.now(),
	}
	if err := s.store.AddTraitAssessment(assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

// Latest returns the most recent assessment, or a not-found error when the
// user has never completed one.
func (s *AssessmentService) Latest(userID string) (*TraitAssessment, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	a, err := s.store.LatestTraits(userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("no assessment found")
	}
	return a, nil
}
