package discussionservice

import (
	"errors"
	"fmt"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// ErrInvalidParent is returned when a discussion is attached to an unsupported document type.
var ErrInvalidParent = errors.New("discussion parent type not supported")

// NotFoundError is returned when a discussion, reply or tail reply does not exist.
type NotFoundError struct {
	DocType documentdomain.DocType
	ID      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.DocType, e.ID)
}
