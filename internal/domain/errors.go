package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a command is illegal in the current phase.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAlreadyAnswered marks a duplicate submission for the same question.
	ErrAlreadyAnswered = errors.New("already answered")
	// ErrTooLate is returned for submissions after answering closed.
	ErrTooLate = errors.New("too late")
	// ErrTooEarly is returned for submissions while the question is still being read.
	ErrTooEarly = errors.New("too early")
	// ErrRoomNotFound is returned when no active session owns the room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPreconditionFailed is returned when a game is started without players or questions.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrNotHost is returned when a non-host connection issues a host command.
	ErrNotHost = errors.New("only the host can do that")
	// ErrPlayerNotFound is returned when a connection has not joined the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrSubmissionNotFound is returned when validating an answer nobody sent.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted answer ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidAnswer is returned when the payload shape does not fit the question type.
	ErrInvalidAnswer = errors.New("answer does not match question type")
	// ErrInvalidQuestion is returned for quiz content that cannot be scored.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidPseudo is returned for blank display names.
	ErrInvalidPseudo = errors.New("pseudo must not be empty")
	// ErrRoomCodeTaken is returned by stores when a code is already reserved.
	ErrRoomCodeTaken = errors.New("room code taken")
	// ErrUnauthorized is returned when the host credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidTransition, "InvalidTransition"},
	{ErrAlreadyAnswered, "AlreadyAnswered"},
	{ErrTooLate, "TooLate"},
	{ErrTooEarly, "TooEarly"},
	{ErrRoomNotFound, "RoomNotFound"},
	{ErrPreconditionFailed, "PreconditionFailed"},
	{ErrNotHost, "NotHost"},
	{ErrPlayerNotFound, "PlayerNotFound"},
	{ErrSubmissionNotFound, "SubmissionNotFound"},
	{ErrQuizNotFound, "QuizNotFound"},
	{ErrQuestionNotFound, "QuestionNotFound"},
	{ErrOptionNotFound, "OptionNotFound"},
	{ErrInvalidAnswer, "InvalidAnswer"},
	{ErrInvalidQuestion, "InvalidQuestion"},
	{ErrInvalidPseudo, "InvalidPseudo"},
	{ErrRoomCodeTaken, "RoomCodeTaken"},
	{ErrUnauthorized, "Unauthorized"},
}

// Code maps an error to its wire code. Unknown errors map to "Internal".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}
