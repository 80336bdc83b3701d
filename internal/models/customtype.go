package models

// CustomTypeKind distinguishes the two selectable category lists.
type CustomTypeKind string

const (
	KindVisitType   CustomTypeKind = "visit"
	KindExpenseType CustomTypeKind = "expense"
)

// CustomType is a user-managed category for visits or expenses. Name is
// unique among non-deleted types of the same kind.
type CustomType struct {
	Envelope `bson:",inline"`
	Kind     CustomTypeKind `json:"kind" bson:"kind"`
	Name     string         `json:"name" bson:"name"`
}

// IsValidCustomTypeKind checks if a kind is valid
func IsValidCustomTypeKind(k CustomTypeKind) bool {
	switch k {
	case KindVisitType, KindExpenseType:
		return true
	default:
		return false
	}
}
