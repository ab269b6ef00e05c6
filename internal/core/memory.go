package core

import (
	"context"
)

type Memory interface {
	GetFullContext(ctx context.Context, subjectID, userQuery string) ([]Message, error)
	SaveMessage(ctx context.Context, subjectID string, msg Message) error
}
