package services

// CoachConfigStore abstracts persistence for per-user coaching
// preferences.
type CoachConfigStore interface {
	GetCoachConfig(userID string) (*CoachConfig, error)
	UpsertCoachConfig(cfg *CoachConfig) error
}

// CoachConfigService manages the per-user AI opt-out. AllowAI defaults to
// true so new users get AI-generated coaching; StoreLogs defaults to
// false.
type CoachConfigService struct{ store CoachConfigStore }

func NewCoachConfigService(store CoachConfigStore) *CoachConfigService {
	return &CoachConfigService{store: store}
}

func (s *CoachConfigService) Get(userID string) (*CoachConfig, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	cfg, err := s.store.GetCoachConfig(userID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &CoachConfig{UserID: userID, AllowAI: true, StoreLogs: false}
	}
	return cfg, nil
}

func (s *CoachConfigService) Update(in *CoachConfig) error {
	if in == nil || in.UserID == "" {
		return NewInvalidError("user_id required")
	}
	return s.store.UpsertCoachConfig(in)
}
