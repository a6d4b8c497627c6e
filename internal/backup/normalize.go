package backup

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/xtrinch/food-coach/internal/domain"
)

// Normalize coerces arbitrary backup input (a current export, a legacy
// shape, or a partial/corrupted object) into a well-typed payload. It is
// total: missing fields default, wrong-typed fields are coerced or
// dropped, and no input shape produces an error. Every import path must
// pass through here before touching live storage.
//
// Accepted legacy aliases: top-level "logs" for "dailyLogs", "insights"
// for "dailyInsights", per-log "symptoms" for "notes" and "id" for
// "date", and a top-level "openAiApiKey". Current names win when both are
// present.
func Normalize(raw interface{}) *Payload {
	// Already-canonical payloads (e.g. a fresh download) pass through.
	if p, ok := raw.(*Payload); ok && p != nil {
		return p
	}

	data := asMap(rawValue(raw))

	payload := &Payload{
		Version:       Version,
		GeneratedAt:   timeOr(data["generatedAt"], time.Now().UTC()),
		DailyLogs:     []domain.DailyLog{},
		DailyInsights: []domain.DailyInsight{},
		AnalysisJobs:  []domain.AnalysisJobRecord{},
	}

	for _, entry := range listOr(data, "dailyLogs", "logs") {
		if m := asMap(entry); m != nil {
			payload.DailyLogs = append(payload.DailyLogs, normalizeLog(m))
		}
	}
	for _, entry := range listOr(data, "dailyInsights", "insights") {
		if m := asMap(entry); m != nil {
			payload.DailyInsights = append(payload.DailyInsights, normalizeInsight(m))
		}
	}
	for _, entry := range listOr(data, "analysisJobs") {
		if m := asMap(entry); m != nil {
			payload.AnalysisJobs = append(payload.AnalysisJobs, normalizeJob(m))
		}
	}

	if settings := asMap(data["settings"]); settings != nil {
		if key := stringVal(settings["openAiApiKey"]); key != "" {
			payload.Settings.OpenAIAPIKey = &key
		}
	}
	if payload.Settings.OpenAIAPIKey == nil {
		if key := stringVal(data["openAiApiKey"]); key != "" {
			payload.Settings.OpenAIAPIKey = &key
		}
	}

	return payload
}

func normalizeLog(m map[string]interface{}) domain.DailyLog {
	now := time.Now().UTC()
	date := stringVal(m["date"])
	if date == "" {
		date = stringVal(m["id"])
	}

	log := domain.DailyLog{
		Date:           date,
		WeightKg:       floatPtr(m["weightKg"]),
		SleepHours:     floatPtr(m["sleepHours"]),
		StressLevel:    intPtr(m["stressLevel"]),
		Bloating:       intPtr(m["bloating"]),
		Energy:         intPtr(m["energy"]),
		ExerciseHours:  floatPtr(m["exerciseHours"]),
		Meals:          domain.MealEntries{},
		Notes:          domain.NoteEntries{},
		DailyInsightID: stringVal(m["dailyInsightId"]),
		CreatedAt:      timeOr(m["createdAt"], now),
		UpdatedAt:      timeOr(m["updatedAt"], now),
	}

	for _, entry := range asList(m["meals"]) {
		if meal := asMap(entry); meal != nil {
			log.Meals = append(log.Meals, normalizeMeal(meal))
		}
	}

	notes := m["notes"]
	if notes == nil {
		notes = m["symptoms"]
	}
	for _, entry := range asList(notes) {
		switch v := entry.(type) {
		case map[string]interface{}:
			log.Notes = append(log.Notes, domain.NoteEntry{
				ID:        stringVal(v["id"]),
				Timestamp: stringVal(v["timestamp"]),
				Text:      stringVal(v["notes"]),
			})
		case string:
			// Oldest exports stored symptoms as bare strings.
			log.Notes = append(log.Notes, domain.NoteEntry{Text: v})
		}
	}

	return log
}

func normalizeMeal(m map[string]interface{}) domain.MealEntry {
	final := floatPtr(m["finalCaloriesEstimate"])
	llm := floatPtr(m["llmCaloriesEstimate"])
	if final == nil {
		// Pre-collapse exports carried a user self-report as well; the
		// same precedence as the schema migration applies.
		if llm != nil {
			final = llm
		} else {
			final = floatPtr(m["userCaloriesEstimate"])
		}
	}

	return domain.MealEntry{
		ID:                        stringVal(m["id"]),
		Timestamp:                 stringVal(m["timestamp"]),
		Description:               stringVal(m["description"]),
		PhotoDataURL:              stringVal(m["photoDataUrl"]),
		LLMCaloriesEstimate:       llm,
		LLMCaloriesExplanation:    stringVal(m["llmCaloriesExplanation"]),
		LLMImprovementSuggestions: stringSlice(m["llmImprovementSuggestions"]),
		LLMProteinGrams:           floatPtr(m["llmProteinGrams"]),
		LLMCarbsGrams:             floatPtr(m["llmCarbsGrams"]),
		LLMFatGrams:               floatPtr(m["llmFatGrams"]),
		LLMFiberGrams:             floatPtr(m["llmFiberGrams"]),
		FinalCaloriesEstimate:     final,
		FinalProteinGrams:         floatPtr(m["finalProteinGrams"]),
		FinalCarbsGrams:           floatPtr(m["finalCarbsGrams"]),
		FinalFatGrams:             floatPtr(m["finalFatGrams"]),
		FinalFiberGrams:           floatPtr(m["finalFiberGrams"]),
	}
}

func normalizeInsight(m map[string]interface{}) domain.DailyInsight {
	return domain.DailyInsight{
		ID:          uintVal(m["id"]),
		Date:        stringVal(m["date"]),
		GeneratedAt: timeOr(m["generatedAt"], time.Now().UTC()),
		Model:       stringVal(m["model"]),
		RawJSON:     stringVal(m["rawJson"]),
		PrettyText:  stringVal(m["prettyText"]),
		Prompt:      stringVal(m["prompt"]),
	}
}

func normalizeJob(m map[string]interface{}) domain.AnalysisJobRecord {
	job := domain.AnalysisJobRecord{
		ID:           stringVal(m["id"]),
		Type:         domain.JobKind(stringVal(m["type"])),
		Label:        stringVal(m["label"]),
		Status:       domain.JobStatus(stringVal(m["status"])),
		StartedAt:    timeOr(m["startedAt"], time.Now().UTC()),
		ErrorMessage: stringVal(m["errorMessage"]),
		Prompt:       stringVal(m["prompt"]),
		Response:     stringVal(m["response"]),
		Dismissed:    boolVal(m["dismissed"]),
	}
	if t, ok := timeVal(m["finishedAt"]); ok {
		job.FinishedAt = &t
	}
	return job
}

// rawValue unwraps the supported input kinds into a decoded JSON value.
func rawValue(raw interface{}) interface{} {
	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil
		}
		return decoded
	case json.RawMessage:
		return rawValue([]byte(v))
	case string:
		return rawValue([]byte(v))
	default:
		return v
	}
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asList(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

// listOr returns the first present list among the given keys, preferring
// earlier (current) names even when a later alias is also present.
func listOr(m map[string]interface{}, keys ...string) []interface{} {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if l := asList(v); l != nil {
				return l
			}
		}
	}
	return nil
}

func stringVal(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func floatPtr(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return &f
		}
	}
	return nil
}

func intPtr(v interface{}) *int {
	if f := floatPtr(v); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

func uintVal(v interface{}) uint {
	if f := floatPtr(v); f != nil && *f > 0 {
		return uint(*f)
	}
	return 0
}

func boolVal(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func stringSlice(v interface{}) []string {
	list := asList(v)
	if list == nil {
		return nil
	}
	var out []string
	for _, entry := range list {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeOr(v interface{}, fallback time.Time) time.Time {
	if t, ok := timeVal(v); ok {
		return t
	}
	return fallback
}

func timeVal(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
