package tasks

import (
	"sort"
	"time"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
)

// endOfToday is the last instant of the current day in the store zone.
func (s *Store) endOfToday() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 23, 59, 59, int(time.Second-time.Millisecond), s.loc)
}

// Filter returns the tasks of one view, optionally narrowed to a
// category, in display order.
//
// active: open and due by the end of today (or undated).
// scheduled: open and due after today.
func (s *Store) Filter(f domain.TaskFilter, category string) []domain.Task {
	eod := s.endOfToday()
	out := []domain.Task{}
	for _, t := range s.tasks {
		if category != "" && t.Category != category {
			continue
		}
		var keep bool
		switch f {
		case domain.FilterActive:
			keep = !t.Completed && (t.DueDate == nil || !t.DueDate.After(eod))
		case domain.FilterScheduled:
			keep = !t.Completed && t.DueDate != nil && t.DueDate.After(eod)
		case domain.FilterCompleted:
			keep = t.Completed
		default:
			keep = true
		}
		if keep {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Stats counts open and completed tasks.
func (s *Store) Stats() domain.TaskStats {
	st := domain.TaskStats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			st.Completed++
		}
	}
	st.Active = st.Total - st.Completed
	if st.Total > 0 {
		st.Percentage = st.Completed * 100 / st.Total
	}
	return st
}

// Categories lists the distinct non-empty categories, sorted.
func (s *Store) Categories() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range s.tasks {
		if t.Category == "" {
			continue
		}
		if _, ok := seen[t.Category]; !ok {
			seen[t.Category] = struct{}{}
			out = append(out, t.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Open returns the incomplete tasks in display order.
func (s *Store) Open() []domain.Task {
	out := []domain.Task{}
	for _, t := range s.tasks {
		if !t.Completed {
			out = append(out, t.Clone())
		}
	}
	return out
}

// RecentlyCompleted returns up to n completed tasks, oldest completion
// first, ending with the most recent one.
func (s *Store) RecentlyCompleted(n int) []domain.Task {
	var done []domain.Task
	for _, t := range s.tasks {
		if t.Completed {
			done = append(done, t.Clone())
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return completedAt(done[i]).Before(completedAt(done[j]))
	})
	if len(done) > n {
		done = done[len(done)-n:]
	}
	return done
}

func completedAt(t domain.Task) time.Time {
	if t.CompletedAt == nil {
		return time.Time{}
	}
	return *t.CompletedAt
}
