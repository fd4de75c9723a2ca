// Package models defines the records exchanged with the record store and
// served by the API. JSON names match the store's field names so records
// pass through the API unchanged.
package models

// StageType is the transaction side a stage belongs to
type StageType string

// Stage types
const (
	StageTypeBuyer  StageType = "buyer"
	StageTypeSeller StageType = "seller"
)

// StageTypes lists every stage type in display order
var StageTypes = []StageType{StageTypeBuyer, StageTypeSeller}

// Valid reports whether t is one of the known stage types
func (t StageType) Valid() bool {
	return t == StageTypeBuyer || t == StageTypeSeller
}

// String implements fmt.Stringer
func (t StageType) String() string {
	return string(t)
}

// Stage is one step of a buyer or seller workflow
type Stage struct {
	ID          string    `json:"id"`
	Type        StageType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsCompleted bool      `json:"isCompleted"`
	// Duration is the estimated number of days with assistance. Store number
	// fields may hold fractions.
	Duration float64 `json:"duration"`
	// TraditionalDuration is the estimated number of days without assistance
	TraditionalDuration float64 `json:"traditionalDuration"`
	AIBenefit           string  `json:"aiBenefit"`
	Created             string  `json:"created,omitempty"`
	Updated             string  `json:"updated,omitempty"`
}

// StageCollection is the store collection holding stages
const StageCollection = "stages"
