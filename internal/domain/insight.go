package domain

import (
	"context"
	"fmt"

	"example.com/fitsync/internal/observability"
)

// InsightType selects the coaching voice and context built for the completion call.
type InsightType string

const (
	InsightDaily         InsightType = "daily"
	InsightRecovery      InsightType = "recovery"
	InsightDeload        InsightType = "deload"
	InsightPRCelebration InsightType = "pr_celebration"
)

// System prompts per insight type. Unrecognised types fall back to the daily prompt.
var insightPrompts = map[InsightType]string{
	InsightDaily:         "You are a motivational fitness coach. Generate a short, encouraging daily insight (max 2 sentences) based on user progress. Be energetic and use emojis.",
	InsightRecovery:      "You are a recovery specialist. Analyze sleep and workout data to give actionable recovery advice (max 2 sentences). Be direct and helpful.",
	InsightDeload:        "You are a training expert. Recommend when to take a deload week based on fatigue signals (max 2 sentences). Be professional.",
	InsightPRCelebration: "You are a hype coach. Celebrate the user's personal record achievement (max 2 sentences). Be extremely enthusiastic with emojis!",
}

// fallbackInsight is returned when the completion endpoint yields no choices.
const fallbackInsight = "Stay consistent and trust the process! 💪"

const recentWindow = 7

// PRContext carries the personal-record details for pr_celebration insights.
type PRContext struct {
	Exercise     string  `json:"exercise"`
	Weight       float64 `json:"weight"`
	PreviousBest float64 `json:"previousBest"`
}

// Completer abstracts the chat-completion client.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// InsightStore captures the reads the insight pipeline needs. Implementations
// return empty slices / nil user when no rows exist.
type InsightStore interface {
	RecentSessions(ctx context.Context, userID string, limit int) ([]WorkoutSession, error)
	RecentSleep(ctx context.Context, userID string, limit int) ([]SleepEntry, error)
	GetUser(ctx context.Context, userID string) (*User, error)
}

// InsightService generates motivational text from recent training data.
type InsightService struct {
	store     InsightStore
	completer Completer
}

// NewInsightService constructs an InsightService.
func NewInsightService(store InsightStore, completer Completer) *InsightService {
	return &InsightService{store: store, completer: completer}
}

// Generate fetches recent data, builds the type-specific context and asks the
// completion endpoint for insight text.
func (s *InsightService) Generate(ctx context.Context, userID string, insightType InsightType, pr *PRContext) (string, error) {
	sessions, err := s.store.RecentSessions(ctx, userID, recentWindow)
	if err != nil {
		return "", err
	}
	sleep, err := s.store.RecentSleep(ctx, userID, recentWindow)
	if err != nil {
		return "", err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	aiContext := buildInsightContext(insightType, user, sessions, sleep, pr)

	insight, err := s.completer.Complete(ctx, SystemPrompt(insightType), aiContext, 0.7, 256)
	if err != nil {
		return "", err
	}
	if insight == "" {
		insight = fallbackInsight
	}
	observability.RecordInsight(string(insightType))
	return insight, nil
}

// SystemPrompt returns the instruction string for the insight type, defaulting
// to the daily prompt for unrecognised types.
func SystemPrompt(insightType InsightType) string {
	if prompt, ok := insightPrompts[insightType]; ok {
		return prompt
	}
	return insightPrompts[InsightDaily]
}

func buildInsightContext(insightType InsightType, user *User, sessions []WorkoutSession, sleep []SleepEntry, pr *PRContext) string {
	// A pr_celebration request without context falls through to the daily
	// text. Long-standing client behaviour depends on this.
	if insightType == InsightPRCelebration && pr != nil {
		return fmt.Sprintf("User %s just hit a PR: %s at %vkg! Previous best was %vkg. Celebrate this achievement!",
			userName(user), pr.Exercise, pr.Weight, pr.PreviousBest)
	}

	if insightType == InsightDeload {
		divisor := float64(len(sleep))
		if divisor == 0 {
			divisor = 1
		}
		var sleepSum, recoverySum float64
		for _, entry := range sleep {
			sleepSum += entry.HoursSlept
			recoverySum += float64(entry.SleepQuality+(10-entry.SorenessLevel)+entry.EnergyLevel) / 3
		}
		avgSleep := sleepSum / divisor
		avgRecovery := recoverySum / divisor
		return fmt.Sprintf("User has been training for %d sessions in the last week. Average sleep: %.1fh. Average recovery score: %.0f/100. Should they deload?",
			len(sessions), avgSleep, avgRecovery/10*100)
	}

	if insightType == InsightRecovery {
		var last SleepEntry
		if len(sleep) > 0 {
			last = sleep[0]
		}
		return fmt.Sprintf("Last night: %vh sleep, quality %d/10, soreness %d/10. Recovery advice?",
			last.HoursSlept, last.SleepQuality, last.SorenessLevel)
	}

	var streak int
	var goal string
	if user != nil {
		streak = user.CurrentStreak
		goal = user.FitnessGoal
	}
	return fmt.Sprintf("User %s has %d workouts this week and a %d-day streak. Goal: %s. Give motivational insight.",
		userName(user), len(sessions), streak, goal)
}

func userName(user *User) string {
	if user == nil {
		return ""
	}
	return user.Name
}
