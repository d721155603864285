package service

import "errors"

var (
	ErrSignedOut          = errors.New("signed out")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAdminExists        = errors.New("an administrator already exists")
	ErrSelf               = errors.New("administrators cannot change or remove their own profile")
)
