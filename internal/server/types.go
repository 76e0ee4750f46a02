// Package server provides the HTTP server for the video converter.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ConvertForm is the validated metadata of a POST /convert request.
// The file body itself is streamed to the conversion service.
type ConvertForm struct {
	// FileName is the client-supplied name of the "video" part.
	FileName string `validate:"required"`
	// Size is the byte length of the "video" part.
	Size int64 `validate:"gt=0"`
	// Style is the raw "style" field. Unknown values are accepted.
	Style string
}

// ConvertResponse is the HTTP response for a successful conversion.
type ConvertResponse struct {
	// Success is always true; failures use a non-200 plain-text response.
	Success bool `json:"success"`
	// DownloadURL is the absolute retrieval URL of the result.
	DownloadURL string `json:"downloadUrl"`
	// ID identifies the conversion for GET /conversions/{id}.
	ID string `json:"id"`
	// Style is the style that was actually applied.
	Style string `json:"style"`
}

// ConversionResponse is the HTTP response for GET /conversions/{id}.
type ConversionResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	RequestedStyle string `json:"requestedStyle"`
	Style          string `json:"style"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"createdAt"`
	CompletedAt    string `json:"completedAt,omitempty"`
}

// StylesResponse lists the styles the server knows.
type StylesResponse struct {
	Styles  []string `json:"styles"`
	Default string   `json:"default"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
