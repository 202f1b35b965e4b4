package rpc

// StatusOK is the success discriminator in server responses.
const StatusOK = "ok"

// Suggestion is one item of a suggest/define/signify/resolve response.
type Suggestion struct {
	Insert    string   `json:"insert"`
	Kind      string   `json:"kind"`
	Label     string   `json:"label"`
	Detail    string   `json:"detail"`
	Arguments []string `json:"arguments"`
}

// SuggestResponse is the response shape of the suggestion-bearing calls.
type SuggestResponse struct {
	Status      string       `json:"status"`
	Message     string       `json:"message,omitempty"`
	Suggestions []Suggestion `json:"suggestions"`
}

// OK reports whether the server answered with a success status.
func (r *SuggestResponse) OK() bool {
	return r.Status == StatusOK
}

// StatusResponse is the response shape of prepare and update.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the server answered with a success status.
func (r *StatusResponse) OK() bool {
	return r.Status == StatusOK
}
