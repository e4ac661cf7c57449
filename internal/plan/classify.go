package plan

import "github.com/torosent/harraw/internal/step"

// Kind is the structural shape of a plan item.
type Kind int

// Kinds in classification order. When an item satisfies several shapes the
// earliest one wins.
const (
	KindUnknown Kind = iota
	KindWithItems
	KindWithItemsRange
	KindWithItemsFromCSV
	KindWithItemsFromFile
	KindDelay
	KindExec
	KindAssign
	KindAssert
	KindRequest
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindWithItems:         "with_items",
	KindWithItemsRange:    "with_items_range",
	KindWithItemsFromCSV:  "with_items_from_csv",
	KindWithItemsFromFile: "with_items_from_file",
	KindDelay:             "delay",
	KindExec:              "exec",
	KindAssign:            "assign",
	KindAssert:            "assert",
	KindRequest:           "request",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Classify returns the shape of def. Generators require a request block.
func Classify(def step.Definition) Kind {
	_, hasRequest := step.Block(def, "request")

	if hasRequest {
		if _, ok := def["with_items"].([]any); ok {
			return KindWithItems
		}
		if _, ok := step.Block(def, "with_items_range"); ok {
			return KindWithItemsRange
		}
		if isPathOrBlock(def["with_items_from_csv"]) {
			return KindWithItemsFromCSV
		}
		if isPathOrBlock(def["with_items_from_file"]) {
			return KindWithItemsFromFile
		}
	}

	for _, k := range []Kind{KindDelay, KindExec, KindAssign, KindAssert} {
		if _, ok := step.Block(def, k.String()); ok {
			return k
		}
	}
	if hasRequest {
		return KindRequest
	}
	return KindUnknown
}

func isPathOrBlock(v any) bool {
	switch v.(type) {
	case string, map[string]any:
		return true
	}
	return false
}
