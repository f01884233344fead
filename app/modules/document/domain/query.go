package documentdomain

// Filter narrows a document enumeration inside one (domain, docType).
type Filter struct {
	DocIDs     []DocID
	Owner      *int64
	ParentType *DocType
	ParentID   *DocID
	// Eq matches payload fields by equality.
	Eq map[string]any
	// Contains matches payload array fields holding the given element.
	Contains map[string]any
}

// StatusFilter narrows a status enumeration inside one (domain, docType).
type StatusFilter struct {
	DocIDs []DocID
	UIDs   []int64
	Eq     map[string]any
}

// SortField orders by a payload field. Missing values sort last.
type SortField struct {
	Field string
	Desc  bool
}

// FindOptions carries sort and pagination.
type FindOptions struct {
	Sort  []SortField
	Skip  int
	Limit int
}

// Update describes an atomic mutation of one record. Operators are applied in
// the order Set, Unset, Inc, Push, Pull, AddToSet.
type Update struct {
	Set      Fields
	Unset    []string
	Inc      map[string]float64
	Push     map[string][]any
	Pull     map[string][]any
	AddToSet map[string][]any
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0 && len(u.Inc) == 0 &&
		len(u.Push) == 0 && len(u.Pull) == 0 && len(u.AddToSet) == 0
}

// SubIDField is the key holding a sub-document's id inside an embedded array.
const SubIDField = "_id"
