package domain

import (
	"time"
)

// JobKind is the closed set of analysis job types.
type JobKind string

const (
	JobKindDaily   JobKind = "daily"
	JobKindWeekly  JobKind = "weekly"
	JobKindMonthly JobKind = "monthly"
	JobKindCustom  JobKind = "custom"
)

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusError   JobStatus = "error"
)

// MealEntry is one logged meal, owned by its DailyLog. The llm* fields
// hold the model's estimate as provenance; the final* fields are the
// editable source of truth for aggregation.
type MealEntry struct {
	ID                        string   `json:"id"`
	Timestamp                 string   `json:"timestamp"`
	Description               string   `json:"description"`
	PhotoDataURL              string   `json:"photoDataUrl,omitempty"`
	LLMCaloriesEstimate       *float64 `json:"llmCaloriesEstimate,omitempty"`
	LLMCaloriesExplanation    string   `json:"llmCaloriesExplanation,omitempty"`
	LLMImprovementSuggestions []string `json:"llmImprovementSuggestions,omitempty"`
	LLMProteinGrams           *float64 `json:"llmProteinGrams,omitempty"`
	LLMCarbsGrams             *float64 `json:"llmCarbsGrams,omitempty"`
	LLMFatGrams               *float64 `json:"llmFatGrams,omitempty"`
	LLMFiberGrams             *float64 `json:"llmFiberGrams,omitempty"`
	FinalCaloriesEstimate     *float64 `json:"finalCaloriesEstimate,omitempty"`
	FinalProteinGrams         *float64 `json:"finalProteinGrams,omitempty"`
	FinalCarbsGrams           *float64 `json:"finalCarbsGrams,omitempty"`
	FinalFatGrams             *float64 `json:"finalFatGrams,omitempty"`
	FinalFiberGrams           *float64 `json:"finalFiberGrams,omitempty"`
}

// ClearEstimates drops every LLM-derived field. Called when the
// description or photo changes, which invalidates the prior estimate.
func (m *MealEntry) ClearEstimates() {
	m.LLMCaloriesEstimate = nil
	m.LLMCaloriesExplanation = ""
	m.LLMImprovementSuggestions = nil
	m.LLMProteinGrams = nil
	m.LLMCarbsGrams = nil
	m.LLMFatGrams = nil
	m.LLMFiberGrams = nil
}

// NoteEntry is one free-text note, owned by its DailyLog.
type NoteEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"notes,omitempty"`
}

// DailyLog is the one record per calendar date. Meals and notes are
// embedded sequences with no lifecycle of their own; every mutation
// rewrites the whole sequence inside the parent row.
type DailyLog struct {
	Date           string      `gorm:"primaryKey;column:date" json:"date"`
	WeightKg       *float64    `json:"weightKg,omitempty"`
	SleepHours     *float64    `json:"sleepHours,omitempty"`
	StressLevel    *int        `json:"stressLevel,omitempty"`
	Bloating       *int        `json:"bloating,omitempty"`
	Energy         *int        `json:"energy,omitempty"`
	ExerciseHours  *float64    `json:"exerciseHours,omitempty"`
	Meals          MealEntries `gorm:"type:text" json:"meals"`
	Notes          NoteEntries `gorm:"type:text" json:"notes"`
	DailyInsightID string      `json:"dailyInsightId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Meal returns the embedded meal with the given id, or nil.
func (l *DailyLog) Meal(id string) *MealEntry {
	for i := range l.Meals {
		if l.Meals[i].ID == id {
			return &l.Meals[i]
		}
	}
	return nil
}

// DailyInsight is the generated narrative for one date. At most one row
// per date is kept alive; regeneration deletes prior rows first.
type DailyInsight struct {
	ID          uint      `gorm:"primaryKey" json:"id,omitempty"`
	Date        string    `gorm:"index" json:"date"`
	GeneratedAt time.Time `json:"generatedAt"`
	Model       string    `json:"model"`
	RawJSON     string    `gorm:"column:raw_json" json:"rawJson"`
	PrettyText  string    `json:"prettyText"`
	Prompt      string    `json:"prompt,omitempty"`
}

// AnalysisJobRecord is the audit record of one remote estimation call.
type AnalysisJobRecord struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	Type         JobKind    `json:"type"`
	Label        string     `json:"label"`
	Status       JobStatus  `gorm:"index" json:"status"`
	StartedAt    time.Time  `gorm:"index" json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Prompt       string     `json:"prompt,omitempty"`
	Response     string     `json:"response,omitempty"`
	Dismissed    bool       `json:"dismissed,omitempty"`
}

// FoodPreset is the deprecated preset collection. It is kept only so
// legacy backups import cleanly; the active schema clears it.
type FoodPreset struct {
	ID              uint      `gorm:"primaryKey" json:"id,omitempty"`
	Key             string    `gorm:"index" json:"key"`
	Label           string    `json:"label"`
	DefaultCalories float64   `json:"defaultCalories"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DateID formats a time as the YYYY-MM-DD key used for daily logs.
func DateID(t time.Time) string {
	return t.Format("2006-01-02")
}

// TodayID returns today's log key.
func TodayID() string {
	return DateID(time.Now())
}
