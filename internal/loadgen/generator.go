package loadgen

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/pkg/logger"
)

// Activity kind distribution weights. Practice answers dominate real
// traffic; diagnostics are rare.
var kindWeights = []struct {
	kind   string
	weight int
}{
	{model.KindPracticeCorrect, 50},
	{model.KindFlashcardReview, 25},
	{model.KindPracticeSession, 15},
	{model.KindChallengeWin, 7},
	{model.KindDiagnosticComplete, 3},
}

var subjects = []string{"math", "science", "reading", "history"}

var grades = []string{"3", "4", "5", "6", "7", "8"}

// randomInt returns a uniform random int in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateActivities creates the requested number of activities spread
// across NumLearners distinct learner ids.
func generateActivities(ctx context.Context, config *Config, stats *Stats) ([]Activity, error) {
	logger.Get().Info(ctx, "generating activities",
		logger.Int("numActivities", config.NumActivities),
		logger.Int("numLearners", config.NumLearners),
	)

	learnerIDs := make([]string, config.NumLearners)
	for i := range learnerIDs {
		learnerIDs[i] = uuid.New().String()
	}

	activities := make([]Activity, config.NumActivities)
	for i := range activities {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		activities[i] = generateSingleActivity(learnerIDs[i%len(learnerIDs)])
	}

	stats.ActivitiesGenerated = len(activities)
	logger.Get().Info(ctx, "generated activities successfully", logger.Int("count", len(activities)))

	return activities, nil
}

// generateSingleActivity builds one activity with a weighted random kind
// and a random subject and grade.
func generateSingleActivity(userID string) Activity {
	return Activity{
		EventID:    uuid.New().String(),
		UserID:     userID,
		Kind:       randomKind(),
		Subject:    subjects[randomInt(len(subjects))],
		Grade:      grades[randomInt(len(grades))],
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func randomKind() string {
	total := 0
	for _, kw := range kindWeights {
		total += kw.weight
	}
	pick := randomInt(total)
	for _, kw := range kindWeights {
		if pick < kw.weight {
			return kw.kind
		}
		pick -= kw.weight
	}
	return kindWeights[0].kind
}
