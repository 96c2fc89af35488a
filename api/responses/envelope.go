package responses

// Body is the success envelope every handler answers with.
type Body struct {
	Data any `json:"data"`
}

// Problem is the public half of a failed request.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorBody wraps a Problem the way clients expect it.
type ErrorBody struct {
	Error Problem `json:"error"`
}
