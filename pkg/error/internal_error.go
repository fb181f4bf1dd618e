package error

import "net/http"

type InternalServerError string

func (err InternalServerError) Error() string {
	return string(err)
}

func (err InternalServerError) ErrCode() string {
	return "INTERNAL_SERVER_ERROR"
}

func (err InternalServerError) StatusCode() int {
	return http.StatusInternalServerError
}

// ConfigurationError reports missing credentials or identifiers. It is fatal
// for the operation that needed them, never for the process.
type ConfigurationError string

func (err ConfigurationError) Error() string {
	return string(err)
}

func (err ConfigurationError) ErrCode() string {
	return "CONFIGURATION_ERROR"
}

func (err ConfigurationError) StatusCode() int {
	return http.StatusInternalServerError
}
