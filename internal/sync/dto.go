package sync

import "github.com/angelmondragon/packfinderz-field/pkg/enums"

// Result summarizes one sync pass.
type Result struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ProgressFunc receives running totals after each processed entry.
type ProgressFunc func(Result)

// endpointsByOperation maps each operation type to its fixed remote path.
var endpointsByOperation = map[enums.OperationType]string{
	enums.OperationAdjustment: "/inventory/adjustments",
	enums.OperationSale:       "/sales/orders",
}

// EndpointFor resolves the replay path for an operation type.
func EndpointFor(op enums.OperationType) (string, bool) {
	path, ok := endpointsByOperation[op]
	return path, ok
}
