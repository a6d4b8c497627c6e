package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MealEntries stores the embedded meal sequence as a JSON text column.
type MealEntries []MealEntry

func (m MealEntries) Value() (driver.Value, error) {
	if m == nil {
		m = MealEntries{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *MealEntries) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// NoteEntries stores the embedded note sequence as a JSON text column.
type NoteEntries []NoteEntry

func (n NoteEntries) Value() (driver.Value, error) {
	if n == nil {
		n = NoteEntries{}
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (n *NoteEntries) Scan(value interface{}) error {
	return scanJSON(value, n)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
