package repository

import (
	"fmt"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

func notFound(table, id string) error {
	return fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
}
