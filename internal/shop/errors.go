// ABOUTME: Typed errors returned by the shop core
// ABOUTME: Kind plus entity or field, matched with errors.Is against the exported templates

package shop

import (
	"errors"
	"fmt"
)

// Kind classifies a shop error.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindAlreadyExists     Kind = "already_exists"
	KindPermissionDenied  Kind = "permission_denied"
	KindNotInControlPanel Kind = "not_in_control_panel"
	KindValidation        Kind = "validation"
	KindNoOpStatusChange  Kind = "no_op_status_change"
	KindInvalidResponse   Kind = "invalid_response"
)

// Entity names the record a NotFound or AlreadyExists error is about.
type Entity string

const (
	EntityUser         Entity = "user"
	EntityShop         Entity = "shop"
	EntityItem         Entity = "item"
	EntityControlPanel Entity = "control_panel"
	EntityAffiliate    Entity = "affiliate"
)

// Field names the item attribute a validation error is about.
type Field string

const (
	FieldName  Field = "name"
	FieldDesc  Field = "desc"
	FieldPrice Field = "price"
	FieldQty   Field = "qty"
	FieldType  Field = "type"
	FieldImage Field = "image"
)

// Error is the error type returned by every shop operation that can fail
// for a reason the caller should report back to the user.
type Error struct {
	Kind    Kind
	Entity  Entity
	Field   Field
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Entity != "":
		return fmt.Sprintf("%s %s: %s", e.Entity, e.Kind, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s %s: %s", e.Field, e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by kind. An empty Entity or Field on the target
// matches any value, so errors.Is(err, ErrNotFound) holds for every entity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Entity != "" && t.Entity != e.Entity {
		return false
	}
	if t.Field != "" && t.Field != e.Field {
		return false
	}
	return true
}

// Match targets for errors.Is. Never returned directly.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Entity: EntityUser}
	ErrShopNotFound         = &Error{Kind: KindNotFound, Entity: EntityShop}
	ErrItemNotFound         = &Error{Kind: KindNotFound, Entity: EntityItem}
	ErrControlPanelNotFound = &Error{Kind: KindNotFound, Entity: EntityControlPanel}

	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists}
	ErrUserExists         = &Error{Kind: KindAlreadyExists, Entity: EntityUser}
	ErrShopExists         = &Error{Kind: KindAlreadyExists, Entity: EntityShop}
	ErrControlPanelExists = &Error{Kind: KindAlreadyExists, Entity: EntityControlPanel}
	ErrAlreadyAffiliated  = &Error{Kind: KindAlreadyExists, Entity: EntityAffiliate}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
	ErrNotInControlPanel  = &Error{Kind: KindNotInControlPanel}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNoOpStatusChange   = &Error{Kind: KindNoOpStatusChange}
	ErrInvalidResponse    = &Error{Kind: KindInvalidResponse}
)

func notFound(entity Entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Message: fmt.Sprintf("%q does not exist", id)}
}

func alreadyExists(entity Entity, id string) *Error {
	return &Error{Kind: KindAlreadyExists, Entity: entity, Message: fmt.Sprintf("%q already exists", id)}
}

func permissionDenied(actorID, reason string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf("%s: %s", actorID, reason)}
}

func validationError(field Field, message string, cause error) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message, cause: cause}
}

func invalidResponse(value, expected string) *Error {
	return &Error{Kind: KindInvalidResponse, Message: fmt.Sprintf("got %q, want %s", value, expected)}
}

// As returns the *Error in err's chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsUserFacing reports whether err carries a typed shop error that should be
// reported back to the user rather than logged as an internal failure.
func IsUserFacing(err error) bool {
	return As(err) != nil
}
