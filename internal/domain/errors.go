package domain

import "errors"

var (
	// ErrInvalidUserID is returned when a call carries no user identifier.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidQuizID is returned when a submission does not name a quiz.
	ErrInvalidQuizID = errors.New("invalid quiz id")
	// ErrInvalidAnswers is returned when the answer list is missing.
	ErrInvalidAnswers = errors.New("answers must be a list")
	// ErrInvalidTimeTaken is returned for a negative elapsed time.
	ErrInvalidTimeTaken = errors.New("time taken must not be negative")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates the user has no progression aggregate.
	ErrUserNotFound = errors.New("user not found")
	// ErrVersionConflict is returned by stores when a concurrent write won.
	ErrVersionConflict = errors.New("aggregate version conflict")
)

// IsInputError reports whether err should be surfaced to the caller as a rejected request.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidQuizID) ||
		errors.Is(err, ErrInvalidAnswers) ||
		errors.Is(err, ErrInvalidTimeTaken) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
