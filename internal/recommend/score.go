package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/planline/planline/internal/model"
)

// Priority combines impact and urgency into a single display value: the
// rounded average when both are present, the one that is present otherwise,
// nil when neither is. Shared by the scorer and UI labels.
func Priority(impact, urgency *int) *int {
	switch {
	case impact != nil && urgency != nil:
		v := int(math.Round(float64(*impact+*urgency) / 2))
		return &v
	case impact != nil:
		v := *impact
		return &v
	case urgency != nil:
		v := *urgency
		return &v
	default:
		return nil
	}
}

// Score maps a task's impact, urgency and due-date proximity to a single
// comparable integer. Earlier (or overdue) due dates never score lower than
// later or absent ones, all else equal.
func Score(task model.Task, now time.Time) int {
	score := 0
	if task.Impact != nil {
		score += *task.Impact
	}
	if task.Urgency != nil {
		score += *task.Urgency
	}
	score += dueScore(task.DueDate, now)
	return score
}

// RecommendedTasks filters to incomplete tasks carrying at least one signal,
// sorts them by descending score and truncates to limit. Ties keep input
// order (stable sort, no secondary key).
func RecommendedTasks(tasks []model.Task, limit int, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed || !t.HasSignal() {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Score(out[i], now) > Score(out[j], now)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Reason explains a task's score in terms of its dominant contributing
// factor.
func Reason(task model.Task, now time.Time) string {
	due := dueScore(task.DueDate, now)
	impact, urgency := 0, 0
	if task.Impact != nil {
		impact = *task.Impact
	}
	if task.Urgency != nil {
		urgency = *task.Urgency
	}

	if due >= impact && due >= urgency && due > 0 {
		switch {
		case daysUntil(*task.DueDate, now) < 0:
			return "overdue"
		case daysUntil(*task.DueDate, now) <= 3:
			return "due soon"
		default:
			return "upcoming due date"
		}
	}
	switch {
	case impact >= highSignal && urgency >= highSignal:
		return "high impact and urgency"
	case impact > urgency && impact >= highSignal:
		return "high impact"
	case urgency >= highSignal:
		return "urgent"
	case impact >= urgency && impact > 0:
		return "impactful"
	case urgency > 0:
		return "time sensitive"
	default:
		return "no strong signal"
	}
}

// highSignal is the threshold above which a 0-10 signal reads as "high".
const highSignal = 7

func dueScore(due *time.Time, now time.Time) int {
	if due == nil {
		return 0
	}
	switch d := daysUntil(*due, now); {
	case d < 0:
		return 16
	case d == 0:
		return 13
	case d <= 1:
		return 11
	case d <= 3:
		return 8
	case d <= 7:
		return 5
	case d <= 14:
		return 3
	default:
		return 1
	}
}

// daysUntil counts whole calendar days from now's date to due's date;
// negative for past dates.
func daysUntil(due, now time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	b := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())
	return int(b.Sub(a) / (24 * time.Hour))
}
