package error

import "net/http"

// NotFoundError reports a route or resource that does not exist.
type NotFoundError string

// RouteNotFound builds the error returned for unknown API paths.
func RouteNotFound(path string) NotFoundError {
	return NotFoundError("API Endpoint not found: " + path)
}

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}
