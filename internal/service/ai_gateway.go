package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/resilience"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

var aiTracer = otel.Tracer("service/ai")

// AI operation names, used for spans, metrics and error details.
const (
	OpPrioritize = "prioritize"
	OpSubtasks   = "subtasks"
	OpTimeBox    = "timebox"
	OpCoach      = "coach"
	OpInsights   = "insights"
	OpVoice      = "voice"
	OpEnhance    = "enhance"
)

const (
	// MinInsightTasks is the fewest completed tasks worth analysing.
	MinInsightTasks = 3
	// insightWindow caps how many recent completions are sent.
	insightWindow = 20
	// maxAudioBytes bounds a decoded voice clip.
	maxAudioBytes = 10 << 20
)

// AIGateway turns app requests into structured-output calls to the
// generative model and validates every reply against its result type.
type AIGateway struct {
	gen      port.TextGenerator
	validate *validator.Validate
	bulkhead *resilience.Bulkhead
	loc      *time.Location
	now      func() time.Time
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAIGateway creates the gateway. At most maxConcurrency model calls
// run at once.
func NewAIGateway(gen port.TextGenerator, maxConcurrency int, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *AIGateway {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if loc == nil {
		loc = time.Local
	}
	return &AIGateway{
		gen:      gen,
		validate: v,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		loc:      loc,
		now:      time.Now,
		metrics:  metrics,
		logger:   logger,
	}
}

// generate runs one model call and decodes the reply into T.
func generate[T any](ctx context.Context, g *AIGateway, req port.GenerationRequest) (*T, error) {
	ctx, span := aiTracer.Start(ctx, "AIGateway."+req.Operation)
	defer span.End()
	span.SetAttributes(attribute.String("ai.operation", req.Operation))

	if err := g.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer g.bulkhead.Release()

	start := time.Now()
	raw, err := g.gen.GenerateJSON(ctx, req)
	if err != nil {
		g.metrics.IncrAIRequest(req.Operation, "error")
		span.RecordError(err)
		g.logger.Warn("ai request failed", zap.String("operation", req.Operation), zap.Error(err))
		return nil, err
	}

	out, err := decodeStrict[T](g.validate, req.Operation, raw)
	if err != nil {
		g.metrics.IncrAIRequest(req.Operation, "invalid")
		span.RecordError(err)
		g.logger.Warn("ai reply rejected", zap.String("operation", req.Operation), zap.Error(err))
		return nil, err
	}

	g.metrics.IncrAIRequest(req.Operation, "ok")
	g.logger.Debug("ai request completed",
		zap.String("operation", req.Operation),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// decodeStrict rejects unknown fields, trailing data and any value that
// breaks the validate tags of T.
func decodeStrict[T any](v *validator.Validate, op string, raw []byte) (*T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, &domain.ErrSchemaViolation{Operation: op, Err: err}
	}
	if dec.More() {
		return nil, &domain.ErrSchemaViolation{Operation: op, Err: errors.New("trailing data after JSON value")}
	}

	if err := v.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &domain.ErrSchemaViolation{Operation: op, Err: err}
		}
		fields := make([]domain.FieldViolation, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, domain.FieldViolation{Field: fieldPath(fe.Namespace()), Rule: rule(fe)})
		}
		return nil, &domain.ErrSchemaViolation{Operation: op, Fields: fields, Err: err}
	}
	return &out, nil
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// taskBrief is the compact task form sent in prompts.
type taskBrief struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Priority         string `json:"priority"`
	DueDate          string `json:"dueDate,omitempty"`
	EstimatedMinutes *int   `json:"estimatedMinutes,omitempty"`
	Difficulty       *int   `json:"difficulty,omitempty"`
	Category         string `json:"category,omitempty"`
	Feeling          string `json:"feeling,omitempty"`
	DurationMinutes  *int   `json:"durationMinutes,omitempty"`
}

func (g *AIGateway) briefs(ts []domain.Task) string {
	out := make([]taskBrief, 0, len(ts))
	for _, t := range ts {
		b := taskBrief{
			ID:               t.ID,
			Title:            t.Title,
			Description:      t.Description,
			Priority:         string(t.Priority),
			EstimatedMinutes: t.EstimatedMinutes,
			Difficulty:       t.Difficulty,
			Category:         t.Category,
			Feeling:          string(t.Feeling),
		}
		if t.DueDate != nil {
			b.DueDate = t.DueDate.In(g.loc).Format("2006-01-02")
		}
		if t.CompletedAt != nil {
			m := int(t.CompletedAt.Sub(t.CreatedAt).Minutes())
			b.DurationMinutes = &m
		}
		out = append(out, b)
	}
	raw, _ := json.Marshal(out)
	return string(raw)
}

func knownIDs(ts []domain.Task) map[string]struct{} {
	ids := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// ============================================================
// Operations
// ============================================================

// Prioritize ranks the open tasks for the user's mood, energy and time.
// Entries naming a task that was not sent are dropped.
func (g *AIGateway) Prioritize(ctx context.Context, req domain.PrioritizeRequest, open []domain.Task) (*domain.PrioritizedTaskResult, error) {
	if !req.Mood.Valid() {
		return nil, &domain.ErrValidation{Field: "mood", Message: "must be produtivo, cansado, ansioso or sem_foco"}
	}
	if req.Energy < 0 || req.Energy > 100 {
		return nil, &domain.ErrValidation{Field: "energy", Message: "must be between 0 and 100"}
	}
	if req.Minutes <= 0 {
		return nil, &domain.ErrValidation{Field: "minutes", Message: "must be positive"}
	}
	if len(open) == 0 {
		return nil, &domain.ErrValidation{Field: "tasks", Message: "no open tasks to prioritize"}
	}

	prompt := fmt.Sprintf(
		"Humor: %s. Energia: %d/100. Tempo disponível: %d minutos.\nTarefas abertas: %s\nOrdene as tarefas para agora.",
		req.Mood, req.Energy, req.Minutes, g.briefs(open))
	res, err := generate[domain.PrioritizedTaskResult](ctx, g, port.GenerationRequest{
		Operation:         OpPrioritize,
		SystemInstruction: instructionPlanner,
		Prompt:            prompt,
		Schema:            prioritizeSchema,
	})
	if err != nil {
		return nil, err
	}

	ids := knownIDs(open)
	kept := res.PrioritizedTasks[:0]
	for _, pt := range res.PrioritizedTasks {
		if _, ok := ids[pt.ID]; ok {
			kept = append(kept, pt)
			continue
		}
		g.logger.Warn("ai prioritization named unknown task", zap.String("task_id", pt.ID))
	}
	res.PrioritizedTasks = kept
	return res, nil
}

// GenerateSubtasks breaks a task into estimated steps.
func (g *AIGateway) GenerateSubtasks(ctx context.Context, req domain.SubtasksRequest) (*domain.SubtasksResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	prompt := fmt.Sprintf("Tarefa: %q.\nDescrição: %q.\nQuebre em subtarefas pequenas com tempo e dificuldade.", req.Title, req.Description)
	return generate[domain.SubtasksResult](ctx, g, port.GenerationRequest{
		Operation:         OpSubtasks,
		SystemInstruction: instructionGTD,
		Prompt:            prompt,
		Schema:            subtasksSchema,
	})
}

// SuggestTimeBox picks open tasks that fit a free window.
func (g *AIGateway) SuggestTimeBox(ctx context.Context, req domain.TimeBoxRequest, open []domain.Task) (*domain.TimeBoxResult, error) {
	if req.Minutes <= 0 {
		return nil, &domain.ErrValidation{Field: "minutes", Message: "must be positive"}
	}
	if req.Preference == "" {
		req.Preference = domain.PreferMixed
	}
	if !req.Preference.Valid() {
		return nil, &domain.ErrValidation{Field: "preference", Message: "must be impacto, rápido or misturado"}
	}
	if len(open) == 0 {
		return nil, &domain.ErrValidation{Field: "tasks", Message: "no open tasks to choose from"}
	}

	prompt := fmt.Sprintf("Tempo livre: %d minutos. Preferência: %s.\nTarefas abertas: %s\nEscolha o que cabe.",
		req.Minutes, req.Preference, g.briefs(open))
	res, err := generate[domain.TimeBoxResult](ctx, g, port.GenerationRequest{
		Operation:         OpTimeBox,
		SystemInstruction: instructionPlanner,
		Prompt:            prompt,
		Schema:            timeBoxSchema,
	})
	if err != nil {
		return nil, err
	}

	ids := knownIDs(open)
	kept := res.Selection[:0]
	total := 0
	for _, pick := range res.Selection {
		if _, ok := ids[pick.ID]; !ok {
			g.logger.Warn("ai time box named unknown task", zap.String("task_id", pick.ID))
			continue
		}
		kept = append(kept, pick)
		total += pick.EstimatedMinutes
	}
	res.Selection = kept
	res.TotalMinutes = total
	return res, nil
}

// Coach holds a short coaching conversation about one task.
func (g *AIGateway) Coach(ctx context.Context, task domain.Task, note string) (*domain.CoachResult, error) {
	prompt := fmt.Sprintf("Tarefa: %q.\nDescrição: %q.\nO que a pessoa disse: %q.\nAjude a começar com um plano de 10 minutos.",
		task.Title, task.Description, note)
	return generate[domain.CoachResult](ctx, g, port.GenerationRequest{
		Operation:         OpCoach,
		SystemInstruction: instructionCoach,
		Prompt:            prompt,
		Schema:            coachSchema,
	})
}

// Insights looks for emotional patterns in recently completed tasks.
// completed should be ordered oldest first; only the last 20 are sent.
func (g *AIGateway) Insights(ctx context.Context, completed []domain.Task) (*domain.EmotionalInsightsResult, error) {
	if len(completed) < MinInsightTasks {
		return nil, &domain.ErrValidation{
			Field:   "tasks",
			Message: fmt.Sprintf("at least %d completed tasks are needed", MinInsightTasks),
		}
	}
	if len(completed) > insightWindow {
		completed = completed[len(completed)-insightWindow:]
	}
	prompt := fmt.Sprintf("Tarefas concluídas com o sentimento registrado: %s\nEncontre padrões de cansaço e prazer.", g.briefs(completed))
	return generate[domain.EmotionalInsightsResult](ctx, g, port.GenerationRequest{
		Operation:         OpInsights,
		SystemInstruction: instructionCoach,
		Prompt:            prompt,
		Schema:            insightsSchema,
	})
}

// Voice structures a recorded voice command. Audio is base64.
func (g *AIGateway) Voice(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceCommandResult, error) {
	if req.Audio == "" {
		return nil, &domain.ErrValidation{Field: "audio", Message: "must not be empty"}
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "audio", Message: "must be base64"}
	}
	if len(decoded) > maxAudioBytes {
		return nil, &domain.ErrValidation{Field: "audio", Message: "clip too large"}
	}
	mime := req.MimeType
	if mime == "" {
		mime = "audio/webm"
	}

	today := g.now().In(g.loc)
	prompt := fmt.Sprintf("Data de referência: %s (%s). Interprete o áudio.",
		today.Format("2006-01-02"), today.Weekday())
	return generate[domain.VoiceCommandResult](ctx, g, port.GenerationRequest{
		Operation:         OpVoice,
		SystemInstruction: instructionVoice,
		Prompt:            prompt,
		Schema:            voiceSchema,
		AudioBase64:       req.Audio,
		AudioMIME:         mime,
	})
}

// Enhance proposes a description, priority, category and subtasks for a
// task title.
func (g *AIGateway) Enhance(ctx context.Context, title string) (*domain.TaskEnhancement, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	prompt := fmt.Sprintf("Analise a seguinte tarefa e forneça melhorias para ajudar na produtividade: %q. Responda em Português do Brasil.", title)
	return generate[domain.TaskEnhancement](ctx, g, port.GenerationRequest{
		Operation:         OpEnhance,
		SystemInstruction: instructionGTD,
		Prompt:            prompt,
		Schema:            enhanceSchema,
	})
}
