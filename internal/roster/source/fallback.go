package source

import (
	"context"

	"studentreg/internal/roster/models"
)

// Lister is any roster source.
type Lister interface {
	Students(ctx context.Context) ([]models.Student, error)
}

// Fallback serves Primary when it has rows and Secondary otherwise, so a
// persisted roster wins over the remote list once statuses have been saved.
type Fallback struct {
	Primary   Lister
	Secondary Lister
}

func (f Fallback) Students(ctx context.Context) ([]models.Student, error) {
	students, err := f.Primary.Students(ctx)
	if err != nil {
		return nil, err
	}
	if len(students) > 0 {
		return students, nil
	}
	return f.Secondary.Students(ctx)
}
