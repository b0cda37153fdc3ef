package domain

// Speaker is a person speaking at a conference. Speakers have no identity of
// their own; two speakers with the same fields are the same speaker.
type Speaker struct {
	Name      string `json:"nom" xml:"nom"`
	Specialty string `json:"specialite" xml:"specialite"`
}
