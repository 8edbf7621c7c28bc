// Package tasks holds the ordered, in-memory task collection of one
// user. A Store is not safe for concurrent use; the owning session
// serializes access.
package tasks

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
)

const defaultDifficulty = 3

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLocation sets the zone used for "today" and voice dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// Store is an ordered task list. Index 0 is the top of the list.
type Store struct {
	tasks []domain.Task
	now   func() time.Time
	newID func() string
	loc   *time.Location
}

// New creates a Store seeded with tasks, typically loaded from disk.
func New(tasks []domain.Task, opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
		loc:   time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	s.tasks = make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		s.tasks = append(s.tasks, t.Clone())
	}
	return s
}

func (s *Store) index(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return &domain.ErrNotFound{Resource: "task", ID: id}
}

// All returns a deep copy of the list in display order.
func (s *Store) All() []domain.Task {
	out := make([]domain.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns a copy of one task.
func (s *Store) Get(id string) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	return s.tasks[i].Clone(), nil
}

// Len returns the number of tasks.
func (s *Store) Len() int { return len(s.tasks) }

func validDifficulty(d *int) bool {
	return d == nil || (*d >= 1 && *d <= 5)
}

// Add validates in and inserts the new task at the top of the list.
// Priority defaults to medium, difficulty to 3, and the due date to now.
func (s *Store) Add(in domain.NewTask) (domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Task{}, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	prio := in.Priority
	if prio == "" {
		prio = domain.PriorityMedium
	}
	if !prio.Valid() {
		return domain.Task{}, &domain.ErrValidation{Field: "priority", Message: "must be low, medium or high"}
	}
	if !validDifficulty(in.Difficulty) {
		return domain.Task{}, &domain.ErrValidation{Field: "difficulty", Message: "must be between 1 and 5"}
	}
	if in.EstimatedMinutes != nil && *in.EstimatedMinutes < 0 {
		return domain.Task{}, &domain.ErrValidation{Field: "estimatedMinutes", Message: "must not be negative"}
	}

	now := s.now()
	t := domain.Task{
		ID:               s.newID(),
		Title:            title,
		Description:      in.Description,
		Priority:         prio,
		CreatedAt:        now,
		DueTime:          in.DueTime,
		EstimatedMinutes: in.EstimatedMinutes,
		Category:         strings.TrimSpace(in.Category),
		Subtasks:         []domain.Subtask{},
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	} else {
		t.DueDate = &now
	}
	if in.Difficulty != nil {
		d := *in.Difficulty
		t.Difficulty = &d
	} else {
		d := defaultDifficulty
		t.Difficulty = &d
	}
	for _, title := range in.Subtasks {
		if title = strings.TrimSpace(title); title != "" {
			t.Subtasks = append(t.Subtasks, domain.Subtask{ID: s.newID(), Title: title})
		}
	}

	s.tasks = append([]domain.Task{t}, s.tasks...)
	return t.Clone(), nil
}

// Update merges the non-nil fields of p into the task.
func (s *Store) Update(id string, p domain.TaskPatch) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return domain.Task{}, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return domain.Task{}, &domain.ErrValidation{Field: "priority", Message: "must be low, medium or high"}
	}
	if !validDifficulty(p.Difficulty) {
		return domain.Task{}, &domain.ErrValidation{Field: "difficulty", Message: "must be between 1 and 5"}
	}

	t := &s.tasks[i]
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.DueTime != nil {
		t.DueTime = *p.DueTime
	}
	if p.EstimatedMinutes != nil {
		m := *p.EstimatedMinutes
		t.EstimatedMinutes = &m
	}
	if p.Difficulty != nil {
		d := *p.Difficulty
		t.Difficulty = &d
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	return t.Clone(), nil
}

// Toggle flips completion. Completing stamps CompletedAt, never earlier
// than CreatedAt, and records feeling when it is one of the known
// reactions. Reopening clears both.
func (s *Store) Toggle(id string, feeling domain.Feeling) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	t := &s.tasks[i]
	if t.Completed {
		t.Completed = false
		t.CompletedAt = nil
		t.Feeling = ""
		return t.Clone(), nil
	}

	at := s.now()
	if at.Before(t.CreatedAt) {
		at = t.CreatedAt
	}
	t.Completed = true
	t.CompletedAt = &at
	if feeling.Valid() {
		t.Feeling = feeling
	}
	return t.Clone(), nil
}

// Delete removes the task.
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return notFound(id)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

// Snooze pushes the due date one day forward, starting from now when
// the task has none.
func (s *Store) Snooze(id string) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	t := &s.tasks[i]
	base := s.now()
	if t.DueDate != nil {
		base = *t.DueDate
	}
	next := base.AddDate(0, 0, 1)
	t.DueDate = &next
	return t.Clone(), nil
}

// AddSubtask appends a subtask to the task.
func (s *Store) AddSubtask(id, title string) (domain.Subtask, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Subtask{}, notFound(id)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Subtask{}, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	st := domain.Subtask{ID: s.newID(), Title: title}
	s.replaceSubtasks(i, append(s.tasks[i].Clone().Subtasks, st))
	return st, nil
}

// ToggleSubtask flips one subtask.
func (s *Store) ToggleSubtask(id, subtaskID string) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	subs := s.tasks[i].Clone().Subtasks
	found := false
	for j := range subs {
		if subs[j].ID == subtaskID {
			subs[j].Completed = !subs[j].Completed
			found = true
		}
	}
	if !found {
		return domain.Task{}, &domain.ErrNotFound{Resource: "subtask", ID: subtaskID}
	}
	s.replaceSubtasks(i, subs)
	return s.tasks[i].Clone(), nil
}

// DeleteSubtask removes one subtask.
func (s *Store) DeleteSubtask(id, subtaskID string) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	subs := make([]domain.Subtask, 0, len(s.tasks[i].Subtasks))
	for _, st := range s.tasks[i].Subtasks {
		if st.ID != subtaskID {
			subs = append(subs, st)
		}
	}
	if len(subs) == len(s.tasks[i].Subtasks) {
		return domain.Task{}, &domain.ErrNotFound{Resource: "subtask", ID: subtaskID}
	}
	s.replaceSubtasks(i, subs)
	return s.tasks[i].Clone(), nil
}

func (s *Store) replaceSubtasks(i int, subs []domain.Subtask) {
	s.tasks[i].Subtasks = subs
}

// MergeSubtasks appends generated subtasks and, when note is not empty,
// adds it to the description as a tip.
func (s *Store) MergeSubtasks(id string, generated []domain.GeneratedSubtask, note string) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	subs := s.tasks[i].Clone().Subtasks
	for _, g := range generated {
		est, diff := g.EstimatedMinutes, g.Difficulty
		subs = append(subs, domain.Subtask{
			ID:               s.newID(),
			Title:            g.Title,
			EstimatedMinutes: &est,
			Difficulty:       &diff,
		})
	}
	s.replaceSubtasks(i, subs)
	if note != "" {
		s.tasks[i].Description = s.tasks[i].Description + " \nDica: " + note
	}
	return s.tasks[i].Clone(), nil
}

// ApplyEnhancement folds a quick AI enhancement into the task: the
// description and category fill empty fields, the priority is replaced,
// and subtasks are appended.
func (s *Store) ApplyEnhancement(id string, e domain.TaskEnhancement) (domain.Task, error) {
	i := s.index(id)
	if i < 0 {
		return domain.Task{}, notFound(id)
	}
	t := &s.tasks[i]
	if t.Description == "" {
		t.Description = e.Description
	}
	if t.Category == "" {
		t.Category = e.Category
	}
	if p, ok := domain.ParsePriority(e.Priority); ok {
		t.Priority = p
	}
	subs := t.Clone().Subtasks
	for _, title := range e.Subtasks {
		subs = append(subs, domain.Subtask{ID: s.newID(), Title: title})
	}
	s.replaceSubtasks(i, subs)
	return t.Clone(), nil
}

// AddFromVoice creates a task from a structured voice command. A date
// becomes a due date at noon; without one the task has no due date.
func (s *Store) AddFromVoice(v domain.VoiceCommandResult) (domain.Task, error) {
	title := strings.TrimSpace(v.Titulo)
	if title == "" {
		return domain.Task{}, &domain.ErrValidation{Field: "titulo", Message: "must not be empty"}
	}
	prio, ok := domain.ParsePriority(v.Prioridade)
	if !ok {
		prio = domain.PriorityMedium
	}

	diff := defaultDifficulty
	t := domain.Task{
		ID:          s.newID(),
		Title:       title,
		Description: v.Descricao,
		Priority:    prio,
		CreatedAt:   s.now(),
		DueTime:     v.Hora,
		Difficulty:  &diff,
		Category:    v.Categoria,
		Subtasks:    []domain.Subtask{},
	}
	if v.Data != "" {
		d, err := time.ParseInLocation("2006-01-02", v.Data, s.loc)
		if err != nil {
			return domain.Task{}, &domain.ErrValidation{Field: "data", Message: "must be YYYY-MM-DD"}
		}
		due := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, s.loc)
		t.DueDate = &due
	}
	for _, st := range v.Subtarefas {
		t.Subtasks = append(t.Subtasks, domain.Subtask{ID: s.newID(), Title: st})
	}

	s.tasks = append([]domain.Task{t}, s.tasks...)
	return t.Clone(), nil
}

// Reorder moves the listed ids to the top in the given order. Unlisted
// tasks keep their relative order after them; unknown ids are ignored.
func (s *Store) Reorder(ids []string) {
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	rankOf := func(id string) int {
		if r, ok := rank[id]; ok {
			return r
		}
		return len(ids)
	}
	sort.SliceStable(s.tasks, func(i, j int) bool {
		return rankOf(s.tasks[i].ID) < rankOf(s.tasks[j].ID)
	})
}

// ClearCompleted drops every completed task and returns how many went.
func (s *Store) ClearCompleted() int {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	s.tasks = kept
	return removed
}

// Reset removes every task.
func (s *Store) Reset() {
	s.tasks = []domain.Task{}
}
