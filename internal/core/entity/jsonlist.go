package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONList is a table part (document lines, allocations, ledger lines)
// stored as a single JSONB column.
type JSONList[T any] []T

// Scan implements sql.Scanner.
func (l *JSONList[T]) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var items []T
	if err := ScanJSON(src, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// Value implements driver.Valuer. A nil list is stored as an empty array.
func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}

// ScanJSON decodes a JSONB column value into dest.
func ScanJSON(src any, dest any) error {
	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON column: %T", src)
	}
	if err := json.Unmarshal(source, dest); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}
