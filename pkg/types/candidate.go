package types

// Candidate is one completion suggestion surfaced to the editor.
// The JSON field names match what completion popups consume: word is the
// text inserted on accept, abbr is shown in the menu in its place, menu
// trails the entry and info fills the preview window.
type Candidate struct {
	InsertText string   `json:"word"`
	Kind       string   `json:"kind"`
	Abbr       string   `json:"abbr"`
	Label      string   `json:"info"`
	Detail     string   `json:"menu"`
	Arguments  []string `json:"arguments,omitempty"`
	Duplicate  bool     `json:"dup"`
}
