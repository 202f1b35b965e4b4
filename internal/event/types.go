package event

// ServerStartedData is the data for server.started events.
type ServerStartedData struct {
	Port int    `json:"port"`
	URL  string `json:"url"`
}

// ServerStoppedData is the data for server.stopped events.
type ServerStoppedData struct {
	Port int `json:"port"`
}

// ServerFailedData is the data for server.failed events.
type ServerFailedData struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error"`
}

// WorkspaceInvalidatedData is the data for workspace.invalidated events.
type WorkspaceInvalidatedData struct {
	Root   string `json:"root"`
	Marker string `json:"marker,omitempty"`
}

// CompletionFailedData is the data for completion.failed events.
type CompletionFailedData struct {
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error"`
}
