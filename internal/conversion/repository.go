package conversion

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a conversion cannot be found by ID.
var ErrNotFound = errors.New("conversion not found")

// Repository defines the interface for conversion bookkeeping.
type Repository interface {
	// Save stores or updates a conversion.
	Save(ctx context.Context, c *Conversion) error

	// FindByID retrieves a conversion by its unique identifier.
	// Returns ErrNotFound if it does not exist.
	FindByID(ctx context.Context, id string) (*Conversion, error)

	// List returns all conversions.
	List(ctx context.Context) ([]*Conversion, error)

	// Delete removes a conversion.
	// Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
