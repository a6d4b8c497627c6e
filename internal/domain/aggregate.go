package domain

// DayTotals is the per-day macro/calorie aggregation.
type DayTotals struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    float64
}

// EffectiveCalories returns the value that counts toward day totals:
// the editable final estimate when set, otherwise the LLM estimate.
func (m *MealEntry) EffectiveCalories() *float64 {
	if m.FinalCaloriesEstimate != nil {
		return m.FinalCaloriesEstimate
	}
	return m.LLMCaloriesEstimate
}

// Totals aggregates all meals of the day. Final fields take precedence
// over LLM fields per meal; meals with neither contribute nothing.
func (l *DailyLog) Totals() DayTotals {
	var t DayTotals
	for i := range l.Meals {
		m := &l.Meals[i]
		t.Calories += orFallback(m.FinalCaloriesEstimate, m.LLMCaloriesEstimate)
		t.Protein += orFallback(m.FinalProteinGrams, m.LLMProteinGrams)
		t.Carbs += orFallback(m.FinalCarbsGrams, m.LLMCarbsGrams)
		t.Fat += orFallback(m.FinalFatGrams, m.LLMFatGrams)
		t.Fiber += orFallback(m.FinalFiberGrams, m.LLMFiberGrams)
	}
	return t
}

func orFallback(final, llm *float64) float64 {
	if final != nil {
		return *final
	}
	if llm != nil {
		return *llm
	}
	return 0
}
