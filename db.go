package chilltimer

import "time"

type ExistingRecord[T ~string] struct {
	ID        T
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewExistingRecord[T ~string](id string, now time.Time) ExistingRecord[T] {
	return ExistingRecord[T]{
		ID:        T(id),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
