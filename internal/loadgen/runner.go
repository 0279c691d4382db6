package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/curio/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run seeds papers and profiles, submits feedback, ranks, and builds a
// digest per user, verifying every briefing it gets back.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	normalize(config)
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting curio load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("papers", config.Papers),
		logger.Int("events", config.Events),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.BaseURL, config.Timeout)
	gen := newGenerator(config.Seed, time.Now())
	users := userIDs(config.Users)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	noiseCap := 0
	for _, user := range users {
		profile := gen.profile()
		noiseCap = profile.NoiseCap
		if _, err := client.Do(ctx, http.MethodPut, "/profiles/"+url.PathEscape(user), profile, nil); err != nil {
			return stats, fmt.Errorf("seed profile %s: %w", user, err)
		}
		stats.ProfilesSeeded++
	}

	papers := gen.papers(config.Papers, config.Dim)
	known := make(map[string]bool, len(papers))
	for i := range papers {
		if _, err := client.Do(ctx, http.MethodPost, "/papers", papers[i], nil); err != nil {
			return stats, fmt.Errorf("seed paper %s: %w", papers[i].ID, err)
		}
		known[papers[i].ID] = true
		stats.PapersSeeded++
	}
	log.Info(ctx, "seeded corpus", logger.Int("papers", stats.PapersSeeded), logger.Int("profiles", stats.ProfilesSeeded))

	events := gen.feedback(ctx, config.Events, users, papers)
	stats.EventsGenerated = len(events)
	submitFeedback(ctx, config, client, events, stats)

	log.Info(ctx, "waiting for feedback to be applied", logger.Duration("settle", config.Settle))
	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(config.Settle):
	}

	var ranked RankResponse
	if _, err := client.Do(ctx, http.MethodPost, "/rank", nil, &ranked); err != nil {
		return stats, fmt.Errorf("ranking failed: %w", err)
	}
	stats.PapersRanked = ranked.Ranked
	stats.RankFailures = ranked.Failed

	var verifyErrs []error
	for _, user := range users {
		var b Briefing
		if _, err := client.Do(ctx, http.MethodPost, "/digests/"+url.PathEscape(user), nil, &b); err != nil {
			return stats, fmt.Errorf("digest for %s: %w", user, err)
		}
		stats.Briefings++
		stats.BriefingPapers += b.PaperCount
		if err := verifyBriefing(b, known, noiseCap); err != nil {
			verifyErrs = append(verifyErrs, err)
		}
		if config.Verbose {
			log.Info(ctx, "briefing",
				logger.String("user_id", user),
				logger.Int("papers", b.PaperCount),
				logger.Int("explore", b.ExploreCount),
				logger.Float64("avg_score", b.AvgScore))
		}
	}

	if config.OutputFile != "" {
		if err := saveFeedbackToFile(ctx, config.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save feedback to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := errors.Join(verifyErrs...); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

func normalize(c *Config) {
	if c.Users <= 0 {
		c.Users = 1
	}
	if c.Dim <= 0 {
		c.Dim = 8
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Settle < 0 {
		c.Settle = DefaultSettle
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, err := client.Do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", status)
	}
	return nil
}

// saveFeedbackToFile writes the submitted feedback as a JSON array.
func saveFeedbackToFile(ctx context.Context, filename string, events []Feedback) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "feedback saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		acceptRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("papersSeeded", stats.PapersSeeded),
		logger.Int("profilesSeeded", stats.ProfilesSeeded),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsThrottled", stats.EventsThrottled),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("papersRanked", stats.PapersRanked),
		logger.Int("rankFailures", stats.RankFailures),
		logger.Int("briefings", stats.Briefings),
		logger.Int("briefingPapers", stats.BriefingPapers),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
