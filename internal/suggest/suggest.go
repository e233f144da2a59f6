// Package suggest produces reminder suggestions from a user's existing
// reminders and the current moment.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/user/nudge/backend/internal/models"
)

// MaxSuggestions caps how many lines a provider returns.
const MaxSuggestions = 5

type Provider interface {
	Suggestions(ctx context.Context, reminders []models.Reminder) []string
}

// ScoringProvider rates each reminder's trigger kind against a
// day-of-week / hour / month context vector and formats the best scores,
// one line per reminder.
type ScoringProvider struct {
	now func() time.Time
}

func NewScoringProvider() *ScoringProvider {
	return &ScoringProvider{now: time.Now}
}

func (p *ScoringProvider) Suggestions(_ context.Context, reminders []models.Reminder) []string {
	if len(reminders) == 0 {
		return []string{}
	}

	ctxVec := contextVector(p.now().UTC())
	scores := make([]float64, 0, len(reminders))
	for i := range reminders {
		scores = append(scores, dot(kindVector(reminders[i].TriggerType), ctxVec))
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	if len(scores) > MaxSuggestions {
		scores = scores[:MaxSuggestions]
	}

	out := make([]string, len(scores))
	for i, v := range scores {
		out[i] = fmt.Sprintf("Suggested reminder %.2f", v)
	}
	return out
}

func contextVector(now time.Time) [3]float64 {
	return [3]float64{
		float64(now.Weekday()) / 7,
		float64(now.Hour()) / 24,
		float64(now.Month()-1) / 12,
	}
}

func kindVector(t models.TriggerType) [3]float64 {
	var v [3]float64
	switch t {
	case models.TriggerTime:
		v[0] = 1
	case models.TriggerLocation:
		v[1] = 1
	case models.TriggerCondition:
		v[2] = 1
	}
	return v
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
