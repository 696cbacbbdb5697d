package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("conflict")
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// Deal room
	ErrDealRoomNotFound  = errors.New("deal room not found")
	ErrDealRoomArchived  = errors.New("deal room is archived")
	ErrAccessDenied      = errors.New("access denied: you are not a member of this deal room")
	ErrPermissionDenied  = errors.New("you don't have permission to perform this action")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotePointNotFound = errors.New("note point not found")
	ErrTeamFull          = errors.New("team is full")
	ErrAlreadyMember     = errors.New("user is already a member of this deal room")

	// Приглашения
	ErrInvitationInvalid       = errors.New("invalid or expired invitation code")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationEmailMismatch = errors.New("this invitation is for a different email address")

	// Звонки
	ErrCallAlreadyActive = errors.New("call already active in this room")
	ErrNoActiveCall      = errors.New("no active call found")
	ErrCallsDisabled     = errors.New("calls are disabled in this room")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDealRoomNotFound),
		errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrNotePointNotFound),
		errors.Is(err, ErrNoActiveCall), errors.Is(err, ErrInvitationInvalid):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrInvitationEmailMismatch),
		errors.Is(err, ErrCallsDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrCallAlreadyActive),
		errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrDealRoomArchived):
		return http.StatusConflict
	case errors.Is(err, ErrInvitationExpired):
		return http.StatusGone
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrTeamFull):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
