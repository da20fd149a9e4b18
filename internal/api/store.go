package api

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mindtide/mindtide/internal/services"
)

// Store is the persistence surface the router needs. It is the union of
// the per-service store interfaces, so one implementation (memory or
// SQLite) backs every service.
type Store interface {
	AddUser(u *services.User) error
	FindUserByEmail(email string) (*services.User, error)

	AddCheckin(c *services.CheckinRecord) error
	ListRecentCheckins(userID string, limit int) ([]services.CheckinRecord, error)
	ListCheckins(userID string, limit, offset int) ([]services.CheckinRecord, int, error)
	ListAllCheckins(userID string) ([]services.CheckinRecord, error)
	CountCheckins(userID string) (int, error)

	AddTraitAssessment(a *services.TraitAssessment) error
	LatestTraits(userID string) (*services.TraitAssessment, error)

	AddIntervention(iv *services.InterventionRecord) error
	GetIntervention(id string) (*services.InterventionRecord, error)
	ListInterventions(userID string) ([]services.InterventionRecord, error)
	LastInterventionAt(userID string) (*time.Time, error)
	MarkInterventionViewed(id string) error
	SetInterventionFeedback(id string, score int, at time.Time) error

	GetCoachConfig(userID string) (*services.CoachConfig, error)
	UpsertCoachConfig(cfg *services.CoachConfig) error
}

var _ Store = (*memoryStore)(nil)

var (
	_ services.AuthStore         = (Store)(nil)
	_ services.CheckinStore      = (Store)(nil)
	_ services.AssessmentStore   = (Store)(nil)
	_ services.HistoryStore      = (Store)(nil)
	_ services.InterventionStore = (Store)(nil)
	_ services.CoachConfigStore  = (Store)(nil)
)

type memoryStore struct {
	mu            sync.RWMutex
	usersByEmail  map[string]*services.User
	checkins      map[string][]services.CheckinRecord
	assessments   map[string][]services.TraitAssessment
	interventions map[string]*services.InterventionRecord
	ivsByUser     map[string][]string
	coachConfigs  map[string]*services.CoachConfig
}

// NewMemoryStore returns an in-process Store. Used in development and
// tests; production runs the SQLite store.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		usersByEmail:  map[string]*services.User{},
		checkins:      map[string][]services.CheckinRecord{},
		assessments:   map[string][]services.TraitAssessment{},
		interventions: map[string]*services.InterventionRecord{},
		ivsByUser:     map[string][]string{},
		coachConfigs:  map[string]*services.CoachConfig{},
	}
}

func (s *memoryStore) AddUser(u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.usersByEmail[strings.ToLower(u.Email)] = &cp
	return nil
}

func (s *memoryStore) FindUserByEmail(email string) (*services.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.usersByEmail[strings.ToLower(email)]
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memoryStore) AddCheckin(c *services.CheckinRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkins[c.UserID] = append(s.checkins[c.UserID], *c)
	return nil
}

func (s *memoryStore) sortedCheckins(userID string) []services.CheckinRecord {
	out := append([]services.CheckinRecord(nil), s.checkins[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) ListRecentCheckins(userID string, limit int) ([]services.CheckinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sortedCheckins(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) ListCheckins(userID string, limit, offset int) ([]services.CheckinRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedCheckins(userID)
	total := len(all)
	if offset >= total {
		return []services.CheckinRecord{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *memoryStore) ListAllCheckins(userID string) ([]services.CheckinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCheckins(userID), nil
}

func (s *memoryStore) CountCheckins(userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkins[userID]), nil
}

func (s *memoryStore) AddTraitAssessment(a *services.TraitAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.UserID] = append(s.assessments[a.UserID], *a)
	return nil
}

func (s *memoryStore) LatestTraits(userID string) (*services.TraitAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.assessments[userID]
	if len(list) == 0 {
		return nil, nil
	}
	latest := list[0]
	for _, a := range list[1:] {
		if a.AdministeredAt.After(latest.AdministeredAt) {
			latest = a
		}
	}
	return &latest, nil
}

func (s *memoryStore) AddIntervention(iv *services.InterventionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *iv
	s.interventions[iv.ID] = &cp
	s.ivsByUser[iv.UserID] = append(s.ivsByUser[iv.UserID], iv.ID)
	return nil
}

func (s *memoryStore) GetIntervention(id string) (*services.InterventionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv := s.interventions[id]
	if iv == nil {
		return nil, nil
	}
	cp := *iv
	return &cp, nil
}

func (s *memoryStore) ListInterventions(userID string) ([]services.InterventionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.InterventionRecord, 0, len(s.ivsByUser[userID]))
	for _, id := range s.ivsByUser[userID] {
		out = append(out, *s.interventions[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) LastInterventionAt(userID string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *time.Time
	for _, id := range s.ivsByUser[userID] {
		at := s.interventions[id].CreatedAt
		if last == nil || at.After(*last) {
			t := at
			last = &t
		}
	}
	return last, nil
}

func (s *memoryStore) MarkInterventionViewed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv := s.interventions[id]
	if iv == nil {
		return services.NewNotFoundError("intervention not found")
	}
	iv.Viewed = true
	return nil
}

func (s *memoryStore) SetInterventionFeedback(id string, score int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv := s.interventions[id]
	if iv == nil {
		return services.NewNotFoundError("intervention not found")
	}
	iv.FeedbackScore = score
	iv.FeedbackAt = &at
	return nil
}

func (s *memoryStore) GetCoachConfig(userID string) (*services.CoachConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.coachConfigs[userID]
	if cfg == nil {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (s *memoryStore) UpsertCoachConfig(cfg *services.CoachConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.coachConfigs[cfg.UserID] = &cp
	return nil
}
