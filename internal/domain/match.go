package domain

// Match is a scored pairing between a query item and a candidate item.
type Match struct {
	QueryID     string
	CandidateID string
	Candidate   Item
	Distance    float64
	Score       float64
}
