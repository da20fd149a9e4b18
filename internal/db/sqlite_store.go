package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mindtide/mindtide/internal/api"
	"github.com/mindtide/mindtide/internal/services"
)

// SQLiteStore persists the full account/check-in/intervention graph.
// Times are stored as RFC3339 UTC text; trait score blocks as JSON.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

var _ api.Store = (*SQLiteStore)(nil)

// encodeTime uses second precision so the stored text sorts
// chronologically.
func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		log.Printf("sqlite store: decode time %q: %v", s, err)
		return time.Time{}
	}
	return t
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func encodeTraits(t services.BigFiveScores) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTraits(s string) services.BigFiveScores {
	var out services.BigFiveScores
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		log.Printf("sqlite store: decode traits: %v", err)
	}
	return out
}

func (s *SQLiteStore) AddUser(u *services.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, encodeTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByEmail(email string) (*services.User, error) {
	row := s.db.QueryRow(
		`SELECT id, email, pass_hash, created_at FROM users WHERE email = ? COLLATE NOCASE`,
		email,
	)
	var u services.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = decodeTime(created)
	return &u, nil
}

func (s *SQLiteStore) AddCheckin(c *services.CheckinRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO checkins (id, user_id, mood_score, energy_level, free_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.MoodScore, string(c.EnergyLevel), toNullString(c.FreeText), encodeTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanCheckins(rows *sql.Rows) ([]services.CheckinRecord, error) {
	defer rows.Close()
	out := []services.CheckinRecord{}
	for rows.Next() {
		var c services.CheckinRecord
		var energy, created string
		var freeText sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.MoodScore, &energy, &freeText, &created); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		c.EnergyLevel = services.EnergyLevel(energy)
		c.FreeText = freeText.String
		c.CreatedAt = decodeTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

const checkinCols = `id, user_id, mood_score, energy_level, free_text, created_at`

func (s *SQLiteStore) ListRecentCheckins(userID string, limit int) ([]services.CheckinRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+checkinCols+` FROM checkins WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent checkins: %w", err)
	}
	return s.scanCheckins(rows)
}

func (s *SQLiteStore) ListCheckins(userID string, limit, offset int) ([]services.CheckinRecord, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM checkins WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count checkins: %w", err)
	}
	rows, err := s.db.Query(
		`SELECT `+checkinCols+` FROM checkins WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list checkins: %w", err)
	}
	list, err := s.scanCheckins(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *SQLiteStore) ListAllCheckins(userID string) ([]services.CheckinRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+checkinCols+` FROM checkins WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list all checkins: %w", err)
	}
	return s.scanCheckins(rows)
}

func (s *SQLiteStore) CountCheckins(userID string) (int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM checkins WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) AddTraitAssessment(a *services.TraitAssessment) error {
	p01, err := encodeTraits(a.TraitsP01)
	if err != nil {
		return fmt.Errorf("encode traits p01: %w", err)
	}
	tScores, err := encodeTraits(a.TraitsT)
	if err != nil {
		return fmt.Errorf("encode traits t: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO trait_assessments (id, user_id, instrument, traits_p01, traits_t, administered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Instrument, p01, tScores, encodeTime(a.AdministeredAt),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestTraits(userID string) (*services.TraitAssessment, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, instrument, traits_p01, traits_t, administered_at
		 FROM trait_assessments WHERE user_id = ? ORDER BY administered_at DESC LIMIT 1`,
		userID,
	)
	var a services.TraitAssessment
	var p01, tScores, administered string
	if err := row.Scan(&a.ID, &a.UserID, &a.Instrument, &p01, &tScores, &administered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest traits: %w", err)
	}
	a.TraitsP01 = decodeTraits(p01)
	a.TraitsT = decodeTraits(tScores)
	a.AdministeredAt = decodeTime(administered)
	return &a, nil
}

func (s *SQLiteStore) AddIntervention(iv *services.InterventionRecord) error {
	var feedbackAt sql.NullString
	if iv.FeedbackAt != nil {
		feedbackAt = sql.NullString{String: encodeTime(*iv.FeedbackAt), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO interventions (id, user_id, checkin_id, template_type, title, body, cta_text,
		                            fallback, viewed, feedback_score, feedback_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, iv.CheckinID, string(iv.TemplateType),
		iv.Message.Title, iv.Message.Body, iv.Message.CTAText,
		boolToInt64(iv.Fallback), boolToInt64(iv.Viewed), iv.FeedbackScore, feedbackAt, encodeTime(iv.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert intervention: %w", err)
	}
	return nil
}

const interventionCols = `id, user_id, checkin_id, template_type, title, body, cta_text,
	fallback, viewed, feedback_score, feedback_at, created_at`

func scanIntervention(scan func(dest ...any) error) (*services.InterventionRecord, error) {
	var iv services.InterventionRecord
	var tpl, created string
	var fallback, viewed int64
	var feedbackAt sql.NullString
	err := scan(&iv.ID, &iv.UserID, &iv.CheckinID, &tpl,
		&iv.Message.Title, &iv.Message.Body, &iv.Message.CTAText,
		&fallback, &viewed, &iv.FeedbackScore, &feedbackAt, &created)
	if err != nil {
		return nil, err
	}
	iv.TemplateType = services.InterventionTemplate(tpl)
	iv.Fallback = fallback != 0
	iv.Viewed = viewed != 0
	iv.CreatedAt = decodeTime(created)
	if feedbackAt.Valid {
		at := decodeTime(feedbackAt.String)
		iv.FeedbackAt = &at
	}
	return &iv, nil
}

func (s *SQLiteStore) GetIntervention(id string) (*services.InterventionRecord, error) {
	row := s.db.QueryRow(`SELECT `+interventionCols+` FROM interventions WHERE id = ?`, id)
	iv, err := scanIntervention(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get intervention: %w", err)
	}
	return iv, nil
}

func (s *SQLiteStore) ListInterventions(userID string) ([]services.InterventionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+interventionCols+` FROM interventions WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()
	out := []services.InterventionRecord{}
	for rows.Next() {
		iv, err := scanIntervention(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LastInterventionAt(userID string) (*time.Time, error) {
	row := s.db.QueryRow(
		`SELECT created_at FROM interventions WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	var created string
	if err := row.Scan(&created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last intervention: %w", err)
	}
	at := decodeTime(created)
	return &at, nil
}

func (s *SQLiteStore) MarkInterventionViewed(id string) error {
	res, err := s.db.Exec(`UPDATE interventions SET viewed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark viewed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("intervention not found")
	}
	return nil
}

func (s *SQLiteStore) SetInterventionFeedback(id string, score int, at time.Time) error {
	res, err := s.db.Exec(
		`UPDATE interventions SET feedback_score = ?, feedback_at = ? WHERE id = ?`,
		score, encodeTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("intervention not found")
	}
	return nil
}

func (s *SQLiteStore) GetCoachConfig(userID string) (*services.CoachConfig, error) {
	row := s.db.QueryRow(`SELECT user_id, allow_ai, store_logs FROM coach_configs WHERE user_id = ?`, userID)
	var cfg services.CoachConfig
	var allowAI, storeLogs int64
	if err := row.Scan(&cfg.UserID, &allowAI, &storeLogs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coach config: %w", err)
	}
	cfg.AllowAI = allowAI != 0
	cfg.StoreLogs = storeLogs != 0
	return &cfg, nil
}

func (s *SQLiteStore) UpsertCoachConfig(cfg *services.CoachConfig) error {
	_, err := s.db.Exec(
		`INSERT INTO coach_configs (user_id, allow_ai, store_logs) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET allow_ai = excluded.allow_ai, store_logs = excluded.store_logs`,
		cfg.UserID, boolToInt64(cfg.AllowAI), boolToInt64(cfg.StoreLogs),
	)
	if err != nil {
		return fmt.Errorf("upsert coach config: %w", err)
	}
	return nil
}
