package backup

import (
	"testing"
	"time"
)

func TestNormalizeCurrentShape(t *testing.T) {
	raw := []byte(`{
		"version": 1,
		"generatedAt": "2026-08-01T10:00:00Z",
		"dailyLogs": [{
			"date": "2026-07-31",
			"weightKg": 70.2,
			"meals": [{"id": "m1", "description": "toast", "finalCaloriesEstimate": 220}],
			"notes": [{"id": "n1", "timestamp": "2026-07-31T09:00:00Z", "notes": "slept badly"}]
		}],
		"dailyInsights": [{"id": 3, "date": "2026-07-31", "prettyText": "ok"}],
		"analysisJobs": [{"id": "j1", "type": "custom", "status": "success", "startedAt": "2026-07-31T12:00:00Z"}],
		"settings": {"openAiApiKey": "sk-test"}
	}`)

	payload := Normalize(raw)

	if payload.Version != Version {
		t.Errorf("version = %d, want %d", payload.Version, Version)
	}
	if !payload.GeneratedAt.Equal(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("generatedAt = %v", payload.GeneratedAt)
	}
	if len(payload.DailyLogs) != 1 {
		t.Fatalf("logs = %d, want 1", len(payload.DailyLogs))
	}
	log := payload.DailyLogs[0]
	if log.Date != "2026-07-31" || log.WeightKg == nil || *log.WeightKg != 70.2 {
		t.Errorf("log = %+v", log)
	}
	if len(log.Meals) != 1 || log.Meals[0].FinalCaloriesEstimate == nil || *log.Meals[0].FinalCaloriesEstimate != 220 {
		t.Errorf("meals = %+v", log.Meals)
	}
	if len(log.Notes) != 1 || log.Notes[0].Text != "slept badly" {
		t.Errorf("notes = %+v", log.Notes)
	}
	if len(payload.DailyInsights) != 1 || payload.DailyInsights[0].ID != 3 {
		t.Errorf("insights = %+v", payload.DailyInsights)
	}
	if len(payload.AnalysisJobs) != 1 || payload.AnalysisJobs[0].ID != "j1" {
		t.Errorf("jobs = %+v", payload.AnalysisJobs)
	}
	if payload.Settings.OpenAIAPIKey == nil || *payload.Settings.OpenAIAPIKey != "sk-test" {
		t.Errorf("settings = %+v", payload.Settings)
	}
}

func TestNormalizeLegacyAliases(t *testing.T) {
	raw := []byte(`{
		"logs": [{
			"id": "2025-02-10",
			"symptoms": ["headache", {"id": "s2", "notes": "bloated"}],
			"meals": [
				{"id": "m1", "userCaloriesEstimate": 500},
				{"id": "m2", "llmCaloriesEstimate": 320, "userCaloriesEstimate": 800}
			]
		}],
		"insights": [{"date": "2025-02-10", "prettyText": "legacy"}],
		"openAiApiKey": "sk-legacy"
	}`)

	payload := Normalize(raw)

	if len(payload.DailyLogs) != 1 {
		t.Fatalf("logs alias not honored: %+v", payload.DailyLogs)
	}
	log := payload.DailyLogs[0]
	if log.Date != "2025-02-10" {
		t.Errorf("id alias not mapped to date: %+v", log)
	}
	if len(log.Notes) != 2 {
		t.Fatalf("symptoms alias produced %d notes, want 2", len(log.Notes))
	}
	if log.Notes[0].Text != "headache" || log.Notes[1].Text != "bloated" {
		t.Errorf("notes = %+v", log.Notes)
	}

	// The self-report becomes the final estimate only when nothing better exists.
	if log.Meals[0].FinalCaloriesEstimate == nil || *log.Meals[0].FinalCaloriesEstimate != 500 {
		t.Errorf("meal m1 = %+v", log.Meals[0])
	}
	if log.Meals[1].FinalCaloriesEstimate == nil || *log.Meals[1].FinalCaloriesEstimate != 320 {
		t.Errorf("meal m2 should prefer the LLM estimate: %+v", log.Meals[1])
	}

	if len(payload.DailyInsights) != 1 || payload.DailyInsights[0].PrettyText != "legacy" {
		t.Errorf("insights alias not honored: %+v", payload.DailyInsights)
	}
	if payload.Settings.OpenAIAPIKey == nil || *payload.Settings.OpenAIAPIKey != "sk-legacy" {
		t.Errorf("top-level key alias not honored: %+v", payload.Settings)
	}
}

func TestNormalizeCurrentNamesWin(t *testing.T) {
	raw := []byte(`{
		"dailyLogs": [{"date": "2026-01-01"}],
		"logs": [{"date": "1999-01-01"}, {"date": "1999-01-02"}]
	}`)

	payload := Normalize(raw)
	if len(payload.DailyLogs) != 1 || payload.DailyLogs[0].Date != "2026-01-01" {
		t.Fatalf("alias shadowed the current key: %+v", payload.DailyLogs)
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	inputs := []interface{}{
		nil,
		[]byte(nil),
		[]byte(""),
		[]byte("not json at all"),
		[]byte(`"just a string"`),
		[]byte(`[1, 2, 3]`),
		[]byte(`{"dailyLogs": "not-a-list", "generatedAt": 42}`),
		[]byte(`{"dailyLogs": [true, null, 7]}`),
		"{}",
	}

	for i, input := range inputs {
		payload := Normalize(input)
		if payload == nil {
			t.Fatalf("input %d: Normalize returned nil", i)
		}
		if payload.DailyLogs == nil || payload.DailyInsights == nil || payload.AnalysisJobs == nil {
			t.Errorf("input %d: collections must default to empty, got %+v", i, payload)
		}
		if payload.GeneratedAt.IsZero() {
			t.Errorf("input %d: generatedAt must default", i)
		}
	}
}

func TestNormalizeCoercions(t *testing.T) {
	raw := []byte(`{
		"dailyLogs": [{
			"date": "2026-03-01",
			"weightKg": "71.5",
			"stressLevel": 3.9,
			"meals": [{"id": 42, "llmCaloriesEstimate": "450"}]
		}]
	}`)

	log := Normalize(raw).DailyLogs[0]
	if log.WeightKg == nil || *log.WeightKg != 71.5 {
		t.Errorf("string weight not coerced: %+v", log.WeightKg)
	}
	if log.StressLevel == nil || *log.StressLevel != 3 {
		t.Errorf("fractional stress not truncated: %+v", log.StressLevel)
	}
	if log.Meals[0].ID != "42" {
		t.Errorf("numeric id not stringified: %q", log.Meals[0].ID)
	}
	if log.Meals[0].LLMCaloriesEstimate == nil || *log.Meals[0].LLMCaloriesEstimate != 450 {
		t.Errorf("string calories not coerced: %+v", log.Meals[0].LLMCaloriesEstimate)
	}
}

func TestNormalizePayloadPassthrough(t *testing.T) {
	original := &Payload{Version: Version, GeneratedAt: time.Now()}
	if got := Normalize(original); got != original {
		t.Fatal("canonical payload should pass through untouched")
	}
}
