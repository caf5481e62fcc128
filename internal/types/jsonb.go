package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var (
	_ sql.Scanner   = (*SubtaskList)(nil)
	_ driver.Valuer = SubtaskList(nil)
)

// scanJSONB scans a JSONB database value into dest. It accepts []byte and
// string representations; nil leaves dest untouched.
func scanJSONB(dest any, value any) error {
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
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan implements sql.Scanner. A NULL column yields an empty list.
func (sl *SubtaskList) Scan(value any) error {
	if value == nil {
		*sl = SubtaskList{}
		return nil
	}
	return scanJSONB((*[]Subtask)(sl), value)
}

// Value implements driver.Valuer. A nil list is stored as an empty array so
// the column never holds JSON null.
func (sl SubtaskList) Value() (driver.Value, error) {
	if sl == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Subtask(sl))
}
