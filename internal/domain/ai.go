package domain

// ============================================================
// AI Gateway: request inputs
// ============================================================

// Mood is the self-reported state used by mood prioritization.
type Mood string

const (
	MoodProductive Mood = "produtivo"
	MoodTired      Mood = "cansado"
	MoodAnxious    Mood = "ansioso"
	MoodUnfocused  Mood = "sem_foco"
)

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	switch m {
	case MoodProductive, MoodTired, MoodAnxious, MoodUnfocused:
		return true
	}
	return false
}

// TimeBoxPreference steers which tasks fit a free window.
type TimeBoxPreference string

const (
	PreferImpact TimeBoxPreference = "impacto"
	PreferQuick  TimeBoxPreference = "rápido"
	PreferMixed  TimeBoxPreference = "misturado"
)

// Valid reports whether p is a known preference.
func (p TimeBoxPreference) Valid() bool {
	return p == PreferImpact || p == PreferQuick || p == PreferMixed
}

// PrioritizeRequest is the body for POST /v1/ai/prioritize.
type PrioritizeRequest struct {
	Mood    Mood `json:"mood"`
	Energy  int  `json:"energy"`  // 0-100
	Minutes int  `json:"minutes"` // available time
}

// SubtasksRequest is the body for POST /v1/ai/subtasks.
type SubtasksRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// TimeBoxRequest is the body for POST /v1/ai/timebox.
type TimeBoxRequest struct {
	Minutes    int               `json:"minutes"`
	Preference TimeBoxPreference `json:"preference"`
}

// CoachRequest is the body for POST /v1/ai/coach.
type CoachRequest struct {
	TaskID string `json:"taskId"`
	Note   string `json:"note,omitempty"`
}

// VoiceRequest is the body for POST /v1/ai/voice. Audio is base64.
type VoiceRequest struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType,omitempty"`
}

// ============================================================
// AI Gateway: structured replies
// ============================================================

// TaskAction is what the coach suggests doing with a prioritized task.
type TaskAction string

const (
	ActionStartNow     TaskAction = "start_now"
	ActionSuggestLater TaskAction = "suggest_later"
	ActionDelegate     TaskAction = "delegate"
)

// SuggestedStep is a short subtask proposal inside a prioritization.
type SuggestedStep struct {
	Title            string `json:"title" validate:"required"`
	EstimatedMinutes int    `json:"estimated_minutes" validate:"min=0"`
}

// PrioritizedTask is one ranked entry of a prioritization.
type PrioritizedTask struct {
	ID                string          `json:"id" validate:"required"`
	Rank              int             `json:"rank" validate:"min=1"`
	Reason            string          `json:"reason" validate:"required"`
	SuggestedSubtasks []SuggestedStep `json:"suggested_subtasks,omitempty" validate:"dive"`
	Action            TaskAction      `json:"action" validate:"required,oneof=start_now suggest_later delegate"`
}

// PrioritizedTaskResult is the reply of mood prioritization.
type PrioritizedTaskResult struct {
	PrioritizedTasks      []PrioritizedTask `json:"prioritized_tasks" validate:"required,dive"`
	Summary               string            `json:"summary" validate:"required"`
	TotalEstimatedMinutes int               `json:"total_estimated_minutes" validate:"min=0"`
}

// OrderedIDs returns task ids in the order the AI returned them.
func (r PrioritizedTaskResult) OrderedIDs() []string {
	ids := make([]string, 0, len(r.PrioritizedTasks))
	for _, t := range r.PrioritizedTasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// GeneratedSubtask is one step produced by subtask generation.
type GeneratedSubtask struct {
	Title            string `json:"title" validate:"required"`
	EstimatedMinutes int    `json:"estimated_minutes" validate:"min=0"`
	Difficulty       int    `json:"difficulty" validate:"min=1,max=5"`
}

// SubtasksResult is the reply of subtask generation.
type SubtasksResult struct {
	Subtasks              []GeneratedSubtask `json:"subtasks" validate:"required,dive"`
	TotalEstimatedMinutes int                `json:"total_estimated_minutes" validate:"min=0"`
	Notes                 string             `json:"notes"`
}

// TimeBoxPick is a task chosen to fill the free window.
type TimeBoxPick struct {
	ID               string `json:"id" validate:"required"`
	Title            string `json:"title" validate:"required"`
	EstimatedMinutes int    `json:"estimated_minutes" validate:"min=0"`
}

// TimeBoxResult is the reply of time-box selection.
type TimeBoxResult struct {
	Selection    []TimeBoxPick `json:"selection" validate:"dive"`
	TotalMinutes int           `json:"total_minutes" validate:"min=0"`
	Reason       string        `json:"reason" validate:"required"`
}

// CoachItem is a suggestion title in a coaching turn.
type CoachItem struct {
	Title string `json:"title" validate:"required"`
}

// CoachStep is one minute of the ten-minute plan.
type CoachStep struct {
	Minute int    `json:"minute" validate:"min=0,max=10"`
	Action string `json:"action" validate:"required"`
}

// CoachTurn is one bubble of the coaching conversation.
type CoachTurn struct {
	Role  string      `json:"role" validate:"required,oneof=coach suggestions plan10min"`
	Text  string      `json:"text,omitempty"`
	Items []CoachItem `json:"items,omitempty" validate:"dive"`
	Steps []CoachStep `json:"steps,omitempty" validate:"dive"`
}

// CoachResult is the reply of the coaching conversation.
type CoachResult struct {
	Conversation []CoachTurn `json:"conversation" validate:"required,min=1,dive"`
	Summary      string      `json:"summary" validate:"required"`
}

// FeelingStat aggregates completed tasks by how they felt.
type FeelingStat struct {
	Title       string  `json:"title" validate:"required"`
	Count       int     `json:"count" validate:"min=0"`
	AvgDuration float64 `json:"avg_duration" validate:"min=0"`
}

// InsightVisual is a chart hint for the insights screen.
type InsightVisual struct {
	Type  string `json:"type" validate:"required"`
	Field string `json:"field" validate:"required"`
	Note  string `json:"note"`
}

// EmotionalInsightsResult is the reply of emotional insights.
type EmotionalInsightsResult struct {
	TopTiring       []FeelingStat   `json:"top_tiring" validate:"dive"`
	TopPleasure     []FeelingStat   `json:"top_pleasure" validate:"dive"`
	Recommendations []string        `json:"recommendations" validate:"required"`
	Visuals         []InsightVisual `json:"visuals" validate:"dive"`
}

// VoiceCommandResult is the structured form of a spoken command.
// Field names follow the Portuguese contract of the mobile client.
type VoiceCommandResult struct {
	Tipo                 string   `json:"tipo" validate:"required,oneof=tarefa lembrete evento projeto"`
	Titulo               string   `json:"titulo" validate:"required"`
	Descricao            string   `json:"descricao"`
	Data                 string   `json:"data" validate:"omitempty,datetime=2006-01-02"`
	Hora                 string   `json:"hora" validate:"omitempty,datetime=15:04"`
	Local                string   `json:"local"`
	Categoria            string   `json:"categoria"`
	Prioridade           string   `json:"prioridade" validate:"required,oneof=Baixa Média Alta"`
	Subtarefas           []string `json:"subtarefas"`
	NecessitaConfirmacao bool     `json:"necessitaConfirmacao"`
	PerguntaParaUsuario  string   `json:"perguntaParaUsuario"`
}

// TaskEnhancement is the reply of quick task enhancement.
type TaskEnhancement struct {
	Description string   `json:"description" validate:"required"`
	Priority    string   `json:"priority" validate:"required,oneof=Alta Média Baixa"`
	Category    string   `json:"category" validate:"required"`
	Subtasks    []string `json:"subtasks" validate:"required,min=1,dive,required"`
}
