package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"
)

// HistoryStore abstracts persistence reads for the timeline and stats
// surfaces.
type HistoryStore interface {
	ListCheckins(userID string, limit, offset int) ([]CheckinRecord, int, error)
	ListAllCheckins(userID string) ([]CheckinRecord, error)
	ListInterventions(userID string) ([]InterventionRecord, error)
}

// TimelineItemType tags entries of the merged history feed.
type TimelineItemType string

const (
	TimelineCheckin      TimelineItemType = "checkin"
	TimelineIntervention TimelineItemType = "intervention"
	TimelineGrouped      TimelineItemType = "grouped"
)

// TimelineItem is one entry of the merged feed. A grouped item pairs a
// check-in with the interventions it produced.
type TimelineItem struct {
	ID            string               `json:"id"`
	Type          TimelineItemType     `json:"type"`
	Date          time.Time            `json:"date"`
	Checkin       *CheckinRecord       `json:"checkin,omitempty"`
	Intervention  *InterventionRecord  `json:"intervention,omitempty"`
	Interventions []InterventionRecord `json:"interventions,omitempty"`
}

// HistoryStats is the aggregate block shown above the timeline.
type HistoryStats struct {
	TotalCheckins      int                `json:"total_checkins"`
	TotalInterventions int                `json:"total_interventions"`
	AvgMoodScore       float64            `json:"avg_mood_score"`
	EnergyDistribution EnergyDistribution `json:"energy_distribution"`
	StreakDays         int                `json:"streak_days"`
	MoodTrend          Trend              `json:"mood_trend"`
	DateFrom           *time.Time         `json:"date_from,omitempty"`
	DateTo             *time.Time         `json:"date_to,omitempty"`
}

// HistoryPage is one page of the merged feed plus the whole-history stats.
type HistoryPage struct {
	Timeline []TimelineItem `json:"timeline"`
	Stats    HistoryStats   `json:"stats"`
	Total    int            `json:"total"`
	HasMore  bool           `json:"has_more"`
}

// HistoryService builds the merged check-in/intervention timeline.
type HistoryService struct {
	store HistoryStore
	now   func() time.Time
}

func NewHistoryService(store HistoryStore) *HistoryService {
	return &HistoryService{store: store, now: func() time.Time { return time.Now() }}
}

// Page returns one page of the timeline. Check-ins with interventions are
// grouped; interventions whose check-in is outside the page appear as
// standalone entries.
func (s *HistoryService) Page(userID string, limit, offset int) (*HistoryPage, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	checkins, total, err := s.store.ListCheckins(userID, limit, offset)
	if err != nil {
		return nil, err
	}
	interventions, err := s.store.ListInterventions(userID)
	if err != nil {
		return nil, err
	}

	byCheckin := map[string][]InterventionRecord{}
	for _, iv := range interventions {
		byCheckin[iv.CheckinID] = append(byCheckin[iv.CheckinID], iv)
	}

	items := make([]TimelineItem, 0, len(checkins))
	for i := range checkins {
		ck := checkins[i]
		if ivs := byCheckin[ck.ID]; len(ivs) > 0 {
			items = append(items, TimelineItem{
				ID:            ck.ID,
				Type:          TimelineGrouped,
				Date:          ck.CreatedAt,
				Checkin:       &ck,
				Interventions: ivs,
			})
			continue
		}
		items = append(items, TimelineItem{ID: ck.ID, Type: TimelineCheckin, Date: ck.CreatedAt, Checkin: &ck})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })

	stats, err := s.stats(userID, len(interventions))
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		Timeline: items,
		Stats:    *stats,
		Total:    total,
		HasMore:  total > offset+limit,
	}, nil
}

func (s *HistoryService) stats(userID string, totalInterventions int) (*HistoryStats, error) {
	all, err := s.store.ListAllCheckins(userID)
	if err != nil {
		return nil, err
	}
	stats := &HistoryStats{
		TotalCheckins:      len(all),
		TotalInterventions: totalInterventions,
		MoodTrend:          TrendStable,
	}
	if len(all) == 0 {
		return stats, nil
	}

	sorted := sortMostRecentFirst(all)
	stats.AvgMoodScore = round1(meanMood(sorted))
	stats.EnergyDistribution = EnergyDistributionOf(sorted)
	stats.StreakDays = StreakDays(sorted, s.now())
	stats.MoodTrend = MoodTrendOf(sorted)
	from := sorted[len(sorted)-1].CreatedAt
	to := sorted[0].CreatedAt
	stats.DateFrom = &from
	stats.DateTo = &to
	return stats, nil
}

// ExportCheckinCSV renders a user's full check-in history as CSV, most
// recent first.
func (s *HistoryService) ExportCheckinCSV(userID string) ([]byte, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	all, err := s.store.ListAllCheckins(userID)
	if err != nil {
		return nil, err
	}
	sorted := sortMostRecentFirst(all)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "created_at", "mood_score", "energy_level", "free_text"})
	for _, c := range sorted {
		rec := []string{
			c.ID,
			c.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(c.MoodScore),
			string(c.EnergyLevel),
			c.FreeText,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
