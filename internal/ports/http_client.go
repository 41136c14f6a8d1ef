package ports

import "net/http"

// HTTPClient abstracts HTTP operations for dependency injection.
// *http.Client and the client returned by retryablehttp's StandardClient
// both satisfy it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
