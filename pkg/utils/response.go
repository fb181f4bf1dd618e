package utils

// ResponseData is the envelope returned by every /api endpoint.
// Status drives the HTTP status line and is not serialized.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}
