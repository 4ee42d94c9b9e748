package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username/password combination")

	// Session errors
	ErrNotLoggedIn = errors.New("not logged in")

	// Wish list errors
	ErrGiftExists       = errors.New("gift already submitted")
	ErrWishListNotFound = errors.New("wish list not found")
	ErrNoWishLists      = errors.New("no wish lists available")
)
