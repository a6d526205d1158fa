package enums

import "fmt"

// OperationType identifies which remote operation a queue entry replays.
type OperationType string

const (
	OperationAdjustment OperationType = "adjustment"
	OperationSale       OperationType = "sale"
)

var validOperationTypes = []OperationType{
	OperationAdjustment,
	OperationSale,
}

// IsValid reports whether the value matches a known operation type.
func (o OperationType) IsValid() bool {
	for _, candidate := range validOperationTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOperationType converts raw input into OperationType.
func ParseOperationType(value string) (OperationType, error) {
	for _, candidate := range validOperationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operation type %q", value)
}
