// Package postgres implements repository.Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/okian/curio/internal/adapters/repository"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/metrics"
)

//go:embed schema.sql
var schema string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar) //nolint:gochecknoglobals // shared builder

const dateLayout = "2006-01-02"

// Connection pool defaults.
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

var paperColumns = []string{ //nolint:gochecknoglobals // column list
	"p.id", "p.title", "p.abstract", "p.authors", "p.published_at", "p.status",
	"p.enriched", "p.topics", "p.facets", "p.embedding", "p.math_depth", "p.evidence",
}

var scoreColumns = []string{ //nolint:gochecknoglobals // column list
	"s.paper_id", "s.novelty", "s.evidence", "s.velocity", "s.personal_fit", "s.lab_prior",
	"s.math_penalty", "s.final_score", "s.why_shown", "s.scored_at",
}

var profileColumns = []string{ //nolint:gochecknoglobals // column list
	"user_id", "interest_vector", "include_topics", "exclude_topics", "include_keywords",
	"exclude_keywords", "score_threshold", "noise_cap", "exploration_rate", "math_sensitivity",
	"lab_boosts", "updated_at",
}

var briefingColumns = []string{ //nolint:gochecknoglobals // column list
	"id", "user_id", "digest_date", "paper_ids", "paper_count", "exploit_count",
	"explore_count", "avg_score", "status", "created_at", "updated_at",
}

// Store persists the ranking state in PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SavePaper upserts a paper.
func (s *Store) SavePaper(ctx context.Context, paper model.Paper) error {
	defer observe("save_paper", time.Now())
	query, args, err := savePaperQuery(paper)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert paper %s: %w", paper.ID, err)
	}
	return nil
}

func savePaperQuery(paper model.Paper) (string, []any, error) {
	if paper.ID == "" {
		return "", nil, fmt.Errorf("empty id: %w", repository.ErrInvalidPaper)
	}
	if paper.Status == "" {
		paper.Status = model.StatusFetched
		if paper.Enrichment != nil {
			paper.Status = model.StatusEnriched
		}
	}

	authors, err := json.Marshal(paper.Authors)
	if err != nil {
		return "", nil, fmt.Errorf("encode authors: %w", err)
	}

	enr := model.Enrichment{}
	if paper.Enrichment != nil {
		enr = *paper.Enrichment
	}
	evidence, err := json.Marshal(enr.Evidence)
	if err != nil {
		return "", nil, fmt.Errorf("encode evidence: %w", err)
	}

	return psql.Insert("papers").
		Columns("id", "title", "abstract", "authors", "published_at", "status",
			"enriched", "topics", "facets", "embedding", "math_depth", "evidence").
		Values(paper.ID, paper.Title, paper.Abstract, string(authors), paper.PublishedAt.UTC(), string(paper.Status),
			paper.Enrichment != nil, pq.StringArray(nonNil(enr.Topics)), pq.StringArray(nonNil(enr.Facets)),
			pq.Float64Array(nonNilFloats(enr.Embedding)), enr.MathDepth, string(evidence)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			abstract = EXCLUDED.abstract,
			authors = EXCLUDED.authors,
			published_at = EXCLUDED.published_at,
			status = EXCLUDED.status,
			enriched = EXCLUDED.enriched,
			topics = EXCLUDED.topics,
			facets = EXCLUDED.facets,
			embedding = EXCLUDED.embedding,
			math_depth = EXCLUDED.math_depth,
			evidence = EXCLUDED.evidence`).
		ToSql()
}

// GetPaper loads one paper.
func (s *Store) GetPaper(ctx context.Context, id string) (model.Paper, error) {
	defer observe("get_paper", time.Now())
	query, args, err := psql.Select(paperColumns...).From("papers p").Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return model.Paper{}, err
	}
	p, err := scanPaper(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Paper{}, fmt.Errorf("paper %s: %w", id, model.ErrPaperNotFound)
	}
	if err != nil {
		return model.Paper{}, fmt.Errorf("get paper %s: %w", id, err)
	}
	return p, nil
}

// ListPapers returns the known papers among ids in the order given.
func (s *Store) ListPapers(ctx context.Context, ids []string) ([]model.Paper, error) {
	defer observe("list_papers", time.Now())
	if len(ids) == 0 {
		return []model.Paper{}, nil
	}
	query, args, err := psql.Select(paperColumns...).From("papers p").Where(sq.Eq{"p.id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	papers, err := s.queryPapers(ctx, query, args)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Paper, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}
	out := make([]model.Paper, 0, len(papers))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListUnranked returns enriched, unranked papers in insertion order.
func (s *Store) ListUnranked(ctx context.Context) ([]model.Paper, error) {
	defer observe("list_unranked", time.Now())
	query, args, err := psql.Select(paperColumns...).From("papers p").
		Where(sq.And{sq.Eq{"p.enriched": true}, sq.NotEq{"p.status": string(model.StatusRanked)}}).
		OrderBy("p.seq").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryPapers(ctx, query, args)
}

// MarkRanked sets the status of the given papers to ranked.
func (s *Store) MarkRanked(ctx context.Context, ids []string) error {
	defer observe("mark_ranked", time.Now())
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Update("papers").
		Set("status", string(model.StatusRanked)).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark ranked: %w", err)
	}
	return nil
}

func (s *Store) queryPapers(ctx context.Context, query string, args []any) ([]model.Paper, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}
	defer rows.Close()

	out := make([]model.Paper, 0)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// UpsertScore replaces the live score of a paper.
func (s *Store) UpsertScore(ctx context.Context, score model.Score) error {
	defer observe("upsert_score", time.Now())
	query, args, err := upsertScoreQuery(score)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert score %s: %w", score.PaperID, err)
	}
	return nil
}

func upsertScoreQuery(score model.Score) (string, []any, error) {
	if score.PaperID == "" {
		return "", nil, fmt.Errorf("score without paper id: %w", repository.ErrInvalidPaper)
	}
	why, err := json.Marshal(score.WhyShown)
	if err != nil {
		return "", nil, fmt.Errorf("encode why_shown: %w", err)
	}
	return psql.Insert("scores").
		Columns("paper_id", "novelty", "evidence", "velocity", "personal_fit", "lab_prior",
			"math_penalty", "final_score", "why_shown", "scored_at").
		Values(score.PaperID, score.Novelty, score.Evidence, score.Velocity, score.PersonalFit, score.LabPrior,
			score.MathPenalty, score.FinalScore, string(why), score.ScoredAt.UTC()).
		Suffix(`ON CONFLICT (paper_id) DO UPDATE SET
			novelty = EXCLUDED.novelty,
			evidence = EXCLUDED.evidence,
			velocity = EXCLUDED.velocity,
			personal_fit = EXCLUDED.personal_fit,
			lab_prior = EXCLUDED.lab_prior,
			math_penalty = EXCLUDED.math_penalty,
			final_score = EXCLUDED.final_score,
			why_shown = EXCLUDED.why_shown,
			scored_at = EXCLUDED.scored_at`).
		ToSql()
}

// GetScore loads the live score of a paper.
func (s *Store) GetScore(ctx context.Context, paperID string) (model.Score, error) {
	defer observe("get_score", time.Now())
	query, args, err := psql.Select(scoreColumns...).From("scores s").Where(sq.Eq{"s.paper_id": paperID}).ToSql()
	if err != nil {
		return model.Score{}, err
	}
	sc, err := scanScore(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Score{}, fmt.Errorf("paper %s: %w", paperID, repository.ErrScoreNotFound)
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("get score %s: %w", paperID, err)
	}
	return sc, nil
}

// ListCandidates joins papers with their scores inside the query window.
func (s *Store) ListCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	defer observe("list_candidates", time.Now())
	query, args, err := candidatesQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := make([]model.Candidate, 0)
	for rows.Next() {
		var (
			pr paperRow
			sr scoreRow
		)
		if err := rows.Scan(append(pr.dest(), sr.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		p, err := pr.paper()
		if err != nil {
			return nil, err
		}
		sc, err := sr.score()
		if err != nil {
			return nil, err
		}
		out = append(out, model.Candidate{Paper: p, Score: sc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func candidatesQuery(q model.CandidateQuery) (string, []any, error) {
	return psql.Select(append(append([]string{}, paperColumns...), scoreColumns...)...).
		From("papers p").
		Join("scores s ON s.paper_id = p.id").
		Where(sq.Eq{"p.enriched": true}).
		Where(sq.GtOrEq{"p.published_at": q.Since.UTC()}).
		Where(sq.GtOrEq{"s.final_score": q.MinScore}).
		OrderBy("s.final_score DESC", "p.published_at DESC", "p.id").
		ToSql()
}

// GetProfile loads a user profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	defer observe("get_profile", time.Now())
	query, args, err := psql.Select(profileColumns...).From("user_profiles").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return model.UserProfile{}, err
	}
	var pr profileRow
	err = s.db.QueryRowContext(ctx, query, args...).Scan(pr.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, fmt.Errorf("user %s: %w", userID, model.ErrProfileNotFound)
	}
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return pr.profile()
}

const profileSettingsUpdate = `include_topics = EXCLUDED.include_topics,
			exclude_topics = EXCLUDED.exclude_topics,
			include_keywords = EXCLUDED.include_keywords,
			exclude_keywords = EXCLUDED.exclude_keywords,
			score_threshold = EXCLUDED.score_threshold,
			noise_cap = EXCLUDED.noise_cap,
			exploration_rate = EXCLUDED.exploration_rate,
			math_sensitivity = EXCLUDED.math_sensitivity,
			lab_boosts = EXCLUDED.lab_boosts,
			updated_at = EXCLUDED.updated_at`

// SaveProfile upserts a profile with every field.
func (s *Store) SaveProfile(ctx context.Context, profile model.UserProfile) error {
	defer observe("save_profile", time.Now())
	return s.upsertProfile(ctx, &profile, "interest_vector = EXCLUDED.interest_vector, "+profileSettingsUpdate)
}

// UpdateSettings upserts a profile but never overwrites a stored interest
// vector. The vector is written only when the row is first created.
func (s *Store) UpdateSettings(ctx context.Context, profile model.UserProfile) error {
	defer observe("update_settings", time.Now())
	return s.upsertProfile(ctx, &profile, profileSettingsUpdate)
}

func (s *Store) upsertProfile(ctx context.Context, profile *model.UserProfile, set string) error {
	query, args, err := profileUpsertQuery(profile, set)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.UserID, err)
	}
	return nil
}

func profileUpsertQuery(profile *model.UserProfile, set string) (string, []any, error) {
	if profile.UserID == "" {
		return "", nil, fmt.Errorf("empty user id: %w", repository.ErrInvalidProfile)
	}
	boosts, err := json.Marshal(profile.LabBoosts)
	if err != nil {
		return "", nil, fmt.Errorf("encode lab boosts: %w", err)
	}
	updated := profile.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	return psql.Insert("user_profiles").
		Columns(profileColumns...).
		Values(profile.UserID, pq.Float64Array(nonNilFloats(profile.InterestVector)),
			pq.StringArray(nonNil(profile.IncludeTopics)), pq.StringArray(nonNil(profile.ExcludeTopics)),
			pq.StringArray(nonNil(profile.IncludeKeywords)), pq.StringArray(nonNil(profile.ExcludeKeywords)),
			profile.ScoreThreshold, profile.NoiseCap, profile.ExplorationRate, profile.MathSensitivity,
			string(boosts), updated.UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET " + set).
		ToSql()
}

// UpdateInterestVector locks the profile row for the duration of fn.
func (s *Store) UpdateInterestVector(ctx context.Context, userID string, fn model.VectorUpdate) (model.Embedding, error) {
	defer observe("update_interest_vector", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current pq.Float64Array
	err = tx.QueryRowContext(ctx,
		`SELECT interest_vector FROM user_profiles WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock profile %s: %w", userID, err)
	}

	next, err := fn(model.Embedding(current))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_profiles SET interest_vector = $1 WHERE user_id = $2`,
		pq.Float64Array(nonNilFloats(next)), userID); err != nil {
		return nil, fmt.Errorf("write interest vector %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next.Clone(), nil
}

// AppendFeedback inserts an event. Re-inserting a known event id is a no-op.
func (s *Store) AppendFeedback(ctx context.Context, event model.FeedbackEvent) error {
	defer observe("append_feedback", time.Now())
	if event.UserID == "" || event.PaperID == "" {
		return fmt.Errorf("event %s: %w", event.ID, repository.ErrInvalidFeedback)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	query, args, err := psql.Insert("feedback_events").
		Columns("id", "user_id", "paper_id", "action", "weight", "created_at").
		Values(event.ID, event.UserID, event.PaperID, string(event.Action), event.Weight, event.Timestamp.UTC()).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append feedback %s: %w", event.ID, err)
	}
	return nil
}

// ListFeedback returns a user's events oldest first.
func (s *Store) ListFeedback(ctx context.Context, userID string) ([]model.FeedbackEvent, error) {
	defer observe("list_feedback", time.Now())
	query, args, err := psql.Select("id", "user_id", "paper_id", "action", "weight", "created_at").
		From("feedback_events").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := make([]model.FeedbackEvent, 0)
	for rows.Next() {
		var (
			ev     model.FeedbackEvent
			action string
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.PaperID, &action, &ev.Weight, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		ev.Action = model.Action(action)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// UserHistory derives the novelty reference from positive feedback.
func (s *Store) UserHistory(ctx context.Context, userID string) (model.UserHistory, error) {
	events, err := s.ListFeedback(ctx, userID)
	if err != nil {
		return model.UserHistory{}, err
	}
	papers, err := s.ListPapers(ctx, repository.PositivePaperIDs(events))
	if err != nil {
		return model.UserHistory{}, err
	}
	return repository.BuildHistory(papers)
}

// UpsertBriefing writes the briefing for (user, day). On conflict the
// original id and created_at win.
func (s *Store) UpsertBriefing(ctx context.Context, b model.Briefing) (model.Briefing, error) {
	defer observe("upsert_briefing", time.Now())
	b.Date = model.DigestDate(b.Date)

	query, args, err := psql.Insert("briefings").
		Columns(briefingColumns...).
		Values(b.ID, b.UserID, b.Date.Format(dateLayout), pq.StringArray(nonNil(b.PaperIDs)), b.PaperCount,
			b.ExploitCount, b.ExploreCount, b.AvgScore, string(b.Status), b.CreatedAt.UTC(), b.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (user_id, digest_date) DO UPDATE SET
			paper_ids = EXCLUDED.paper_ids,
			paper_count = EXCLUDED.paper_count,
			exploit_count = EXCLUDED.exploit_count,
			explore_count = EXCLUDED.explore_count,
			avg_score = EXCLUDED.avg_score,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
			RETURNING id, created_at`).
		ToSql()
	if err != nil {
		return model.Briefing{}, err
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.CreatedAt); err != nil {
		return model.Briefing{}, fmt.Errorf("upsert briefing %s: %w", b.UserID, err)
	}
	return b, nil
}

// GetBriefing loads the briefing of userID for date's day.
func (s *Store) GetBriefing(ctx context.Context, userID string, date time.Time) (model.Briefing, error) {
	defer observe("get_briefing", time.Now())
	day := model.DigestDate(date).Format(dateLayout)
	query, args, err := psql.Select(briefingColumns...).From("briefings").
		Where(sq.Eq{"user_id": userID, "digest_date": day}).
		ToSql()
	if err != nil {
		return model.Briefing{}, err
	}

	var (
		b      model.Briefing
		ids    pq.StringArray
		status string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.UserID, &b.Date, &ids, &b.PaperCount,
		&b.ExploitCount, &b.ExploreCount, &b.AvgScore, &status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Briefing{}, fmt.Errorf("user %s on %s: %w", userID, day, repository.ErrBriefingNotFound)
	}
	if err != nil {
		return model.Briefing{}, fmt.Errorf("get briefing: %w", err)
	}
	b.PaperIDs = []string(ids)
	b.Status = model.BriefingStatus(status)
	b.Date = model.DigestDate(b.Date)
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
