package listing

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("listing not found")
	ErrStorage            = errors.New("image upload failed")
	ErrPersistence        = errors.New("listing persistence failed")
	ErrUploadLinksMissing = errors.New("upload links missing from request")
	ErrOwnerNotFound      = errors.New("listing owner does not exist")
)
