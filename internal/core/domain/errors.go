package domain

import "errors"

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrCredentialNotFound = errors.New("delivery credential not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidContent     = errors.New("invalid content item")
	ErrUnknownRole        = errors.New("unknown role")
	ErrInvalidIDToken     = errors.New("invalid id token")
)
