package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"healthmate/backend/internal/logger"
	"healthmate/backend/internal/store"
)

const (
	DefaultPointsPerSubmission = 10

	WarningRecommendationsNotSaved = "recommendations_not_saved"
	WarningPointsNotAwarded        = "points_not_awarded"
)

// PointsAwarder credits gamification points to a user.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, userID string, points int) (int, error)
}

type SubmitResult struct {
	Record          Record
	Tier            Tier
	Recommendations Recommendations
	PointsEarned    int
	// Warnings lists secondary writes that failed while the record itself
	// was saved.
	Warnings []string
}

type Service struct {
	store               store.DocumentStore
	points              PointsAwarder
	pointsPerSubmission int
	log                 *logger.Logger
	now                 func() time.Time
}

func NewService(docs store.DocumentStore, points PointsAwarder, pointsPerSubmission int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if pointsPerSubmission <= 0 {
		pointsPerSubmission = DefaultPointsPerSubmission
	}
	return &Service{
		store:               docs,
		points:              points,
		pointsPerSubmission: pointsPerSubmission,
		log:                 log.With("service", "HealthRecordService"),
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// Submit merges raw metrics into the stored record, re-evaluates the risk
// tier, regenerates recommendations and awards points. Every write is
// attempted; only a failed record write fails the call.
func (s *Service) Submit(ctx context.Context, userID string, raw map[string]any) (SubmitResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SubmitResult{}, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	update, err := ParseMetrics(raw)
	if err != nil {
		return SubmitResult{}, err
	}

	current, _, err := s.Record(ctx, userID)
	if err != nil {
		return SubmitResult{}, err
	}

	now := s.now()
	record := Record{Metrics: current.Metrics.Merge(update), LastUpdated: &now}
	record.RiskLevel = Evaluate(record.Metrics)
	recs := Generate(record.Metrics)

	s.log.Debug(
		"health record evaluated",
		"user_id", userID,
		"score", Score(record.Metrics),
		"risk_level", record.RiskLevel,
		"advice", AppliedAdvice(record.Metrics),
	)

	result := SubmitResult{
		Record:          record,
		Tier:            record.RiskLevel,
		Recommendations: recs,
	}

	recordErr := s.store.Put(ctx, store.CollectionHealthData, userID, record)
	if recordErr != nil {
		s.log.Error("failed to save health record", "user_id", userID, "err", recordErr)
	}

	if err := s.storeRecommendations(ctx, userID, recs, now); err != nil {
		s.log.Error("failed to save recommendations", "user_id", userID, "err", err)
		result.Warnings = append(result.Warnings, WarningRecommendationsNotSaved)
	}

	if s.points != nil {
		if _, err := s.points.AwardPoints(ctx, userID, s.pointsPerSubmission); err != nil {
			s.log.Error("failed to award points", "user_id", userID, "err", err)
			result.Warnings = append(result.Warnings, WarningPointsNotAwarded)
		} else {
			result.PointsEarned = s.pointsPerSubmission
		}
	}

	if recordErr != nil {
		return result, fmt.Errorf("save health record: %w", recordErr)
	}
	return result, nil
}

func (s *Service) storeRecommendations(ctx context.Context, userID string, recs Recommendations, generatedAt time.Time) error {
	return s.store.Put(ctx, store.CollectionRecommendations, userID, RecommendationSet{
		Recommendations: recs,
		GeneratedAt:     generatedAt,
	})
}

// Record returns the stored record; a missing record is reported as an empty
// record with found=false.
func (s *Service) Record(ctx context.Context, userID string) (Record, bool, error) {
	var record Record
	found, err := s.store.Get(ctx, store.CollectionHealthData, userID, &record)
	if err != nil {
		return Record{}, false, err
	}
	if !found {
		return Record{}, false, nil
	}
	return record, true, nil
}

func (s *Service) Recommendations(ctx context.Context, userID string) (RecommendationSet, bool, error) {
	var set RecommendationSet
	found, err := s.store.Get(ctx, store.CollectionRecommendations, userID, &set)
	if err != nil || !found {
		return RecommendationSet{}, false, err
	}
	return set, true, nil
}
