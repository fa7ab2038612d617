package responses

// Success wraps every successful payload, over HTTP and on the command line.
type Success struct {
	Data any `json:"data"`
}

// Failure is the error envelope. Details carries per-field validation
// messages or dependency check results.
type Failure struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
