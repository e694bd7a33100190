package gamestore

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindStatus
	KindDecode
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is returned for every failed call to the game store API.
type Error struct {
	Kind   ErrorKind
	Status int
	// Message is the backend's {message} field when it sent one.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		msg := e.Message
		if msg == "" && e.Err != nil {
			msg = e.Err.Error()
		}
		return fmt.Sprintf("game store api returned %d: %s", e.Status, msg)
	case KindNetwork, KindDecode, KindUnavailable:
		return fmt.Sprintf("game store api %s error: %v", e.Kind, e.Err)
	default:
		return "game store api error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is safe to show in the storefront.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "Unable to reach the store. Check your connection and try again."
	case KindDecode:
		return "The store returned an unexpected response."
	case KindUnavailable:
		return "The store is temporarily unavailable. Please try again shortly."
	}
	if e.Message != "" {
		return e.Message
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return "Your session has expired. Please sign in again."
	case http.StatusForbidden:
		return "You do not have access to this resource."
	case http.StatusNotFound:
		return "The requested item was not found."
	}
	if e.Status >= 500 {
		return "The store is having trouble right now. Please try again later."
	}
	return "The request could not be completed."
}

// UserMessage extracts a display message from any error.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return "Something went wrong. Please try again."
}

// IsStatus reports whether err is an HTTP status error with the given code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindStatus && apiErr.Status == status
}
