package documentservice

import (
	"errors"
	"fmt"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// ErrParentMismatch is returned when exactly one of parentType and parentId is supplied.
var ErrParentMismatch = errors.New("parentType and parentId must be supplied together")

// DocumentNotFoundError is returned by operations that require an existing document.
type DocumentNotFoundError struct {
	Key documentdomain.DocKey
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document %s not found", e.Key)
}
