package core

// Error codes for domain errors surfaced as error events.
const (
	ErrCodeInvalidCredential = "invalid_credential"
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeNotAuthorized     = "not_authorized"
	ErrCodeNotInRoom         = "not_in_room"
	ErrCodeAlreadyJoined     = "already_joined"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnavailable       = "unavailable"
)

// CoreError wraps a code and human-readable message. It travels to the
// affected connection only; no failure ever reaches other connections.
type CoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
