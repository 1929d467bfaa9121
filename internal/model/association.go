package model

// AssociationKind classifies how an event was linked to a date
type AssociationKind string

const (
	// KindExplicit: a date mention sits within the token window and is the
	// unambiguous nearest candidate
	KindExplicit AssociationKind = "explicit"
	// KindImplicit: no date within the window; the document-level date applies
	KindImplicit AssociationKind = "implicit"
	// KindAmbiguous: several dates tied as nearest and no way to break the tie
	KindAmbiguous AssociationKind = "ambiguous"
	// KindUnassociated: no candidate date at all
	KindUnassociated AssociationKind = "unassociated"
)

// CertaintyFactor returns the confidence multiplier for the association kind.
// The ordering explicit >= implicit >= ambiguous >= unassociated is load-bearing:
// flagging and downstream triage rely on it.
func (k AssociationKind) CertaintyFactor() float64 {
	switch k {
	case KindExplicit:
		return 1.0
	case KindImplicit:
		return 0.6
	case KindAmbiguous:
		return 0.3
	default:
		return 0.0
	}
}

// Association links one event mention to at most one date mention.
// Date is nil exactly when Kind is KindUnassociated.
type Association struct {
	Event      EventMention    `json:"event"`
	Date       *DateMention    `json:"date,omitempty"`
	Kind       AssociationKind `json:"kind"`
	Confidence float64         `json:"confidence"`

	// TokenDistance is the token gap between the event and the chosen date,
	// kept for transparency of the confidence formula. -1 when no date.
	TokenDistance int `json:"token_distance"`
	// Candidates counts the date mentions that were tied as nearest
	Candidates int `json:"candidates,omitempty"`
}

// DocumentResult holds the ordered associations of one source document
type DocumentResult struct {
	DocID        string        `json:"doc_id"`
	DocumentDate *DateMention  `json:"document_date,omitempty"`
	Associations []Association `json:"associations"`
}
