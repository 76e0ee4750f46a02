// Package conversion provides the Conversion aggregate and the dispatcher that
// drives one uploaded video through the external transcoder.
// Each conversion follows RECEIVED -> PROCESSING -> SUCCEEDED | FAILED and is
// strictly one-shot: there is no retry and no resume.
package conversion

import (
	"errors"
	"sync"
	"time"

	"github.com/YogeshKomre/Video-Converter/internal/conversion/id"
	"github.com/YogeshKomre/Video-Converter/internal/style"
)

// Status represents the current state of a Conversion.
type Status string

const (
	// StatusReceived indicates the upload is stored and waiting for the transcoder.
	StatusReceived Status = "RECEIVED"
	// StatusProcessing indicates the transcoder is running.
	StatusProcessing Status = "PROCESSING"
	// StatusSucceeded indicates the output is written and retrievable.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed indicates the upload was rejected or the transcoder failed.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// RECEIVED -> FAILED covers uploads rejected before the transcoder starts.
var validTransitions = map[Status][]Status{
	StatusReceived:   {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusSucceeded, StatusFailed},
	StatusSucceeded:  {},
	StatusFailed:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Conversion is a single upload-and-transcode request.
type Conversion struct {
	mu sync.RWMutex

	// ID is the unique identifier for this conversion.
	ID string
	// Status is the current state.
	Status Status
	// SourceName is the client-supplied file name.
	SourceName string
	// SourcePath is the stored upload in the incoming directory.
	SourcePath string
	// RequestedStyle is the style identifier as sent by the client.
	RequestedStyle style.ID
	// Style is the resolved profile.
	Style style.Profile
	// OutputName is the file name of the result in the outgoing directory.
	OutputName string
	// OutputPath is the full path of the result.
	OutputPath string
	// DownloadURL is the retrieval URL of the result once succeeded.
	DownloadURL string
	// Error contains the failure reason if the conversion failed.
	Error string
	// CreatedAt is when the upload was received.
	CreatedAt time.Time
	// UpdatedAt is when the conversion was last updated.
	UpdatedAt time.Time
	// StartedAt is when the transcoder was started.
	StartedAt time.Time
	// CompletedAt is when the conversion reached a terminal state.
	CompletedAt time.Time
}

// New creates a Conversion in RECEIVED status with a generated ID and the
// resolved profile for requested.
func New(sourceName string, requested style.ID) *Conversion {
	return NewWithID(id.Generate(), sourceName, requested)
}

// NewWithID creates a Conversion with the specified ID.
func NewWithID(convID, sourceName string, requested style.ID) *Conversion {
	now := time.Now()
	return &Conversion{
		ID:             convID,
		Status:         StatusReceived,
		SourceName:     sourceName,
		RequestedStyle: requested,
		Style:          style.Resolve(requested),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TransitionTo attempts to change the status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (c *Conversion) TransitionTo(status Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(status)
}

func (c *Conversion) transitionLocked(status Status) error {
	if !canTransition(c.Status, status) {
		return ErrInvalidTransition
	}

	c.Status = status
	c.UpdatedAt = time.Now()

	switch status {
	case StatusProcessing:
		c.StartedAt = c.UpdatedAt
	case StatusSucceeded, StatusFailed:
		c.CompletedAt = c.UpdatedAt
	}
	return nil
}

// Start transitions from RECEIVED to PROCESSING.
func (c *Conversion) Start() error {
	return c.TransitionTo(StatusProcessing)
}

// Succeed records the retrieval URL and transitions to SUCCEEDED.
func (c *Conversion) Succeed(downloadURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusSucceeded); err != nil {
		return err
	}
	c.DownloadURL = downloadURL
	return nil
}

// Fail records errMsg and transitions to FAILED.
func (c *Conversion) Fail(errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(StatusFailed); err != nil {
		return err
	}
	c.Error = errMsg
	return nil
}

// GetStatus returns the current status (thread-safe).
func (c *Conversion) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Status
}

// IsTerminal returns true if the conversion is in a terminal state.
func (c *Conversion) IsTerminal() bool {
	s := c.GetStatus()
	return s == StatusSucceeded || s == StatusFailed
}

// Clone creates a copy of the conversion for safe reads.
func (c *Conversion) Clone() *Conversion {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Conversion{
		ID:             c.ID,
		Status:         c.Status,
		SourceName:     c.SourceName,
		SourcePath:     c.SourcePath,
		RequestedStyle: c.RequestedStyle,
		Style:          c.Style,
		OutputName:     c.OutputName,
		OutputPath:     c.OutputPath,
		DownloadURL:    c.DownloadURL,
		Error:          c.Error,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		StartedAt:      c.StartedAt,
		CompletedAt:    c.CompletedAt,
	}
}
