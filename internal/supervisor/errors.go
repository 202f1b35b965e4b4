package supervisor

// StartupError reports that the server process exited, closed its output
// or ran out of time before announcing a port. Output carries everything
// the process wrote up to that point.
type StartupError struct {
	Output string
	Err    error
}

func (e *StartupError) Error() string {
	msg := "failed to start server"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += ":\n" + e.Output
	}
	return msg
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
