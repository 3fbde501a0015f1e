package services

import (
	"errors"
	"fmt"
)

// Виды ошибок. Каждая доменная ошибка ниже разворачивается ровно в один из них,
// handlers выбирают HTTP статус по виду.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("requested resource not found")
	ErrConflict         = errors.New("conflict")
)

// domainError carries a user-facing message and the kind it belongs to.
type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

func validationError(msg string) error { return &domainError{kind: ErrValidationFailed, msg: msg} }
func notFoundError(msg string) error   { return &domainError{kind: ErrNotFound, msg: msg} }
func conflictError(msg string) error   { return &domainError{kind: ErrConflict, msg: msg} }

var (
	// Roster
	ErrRosterTooLarge      = validationError("match roster exceeds the maximum number of players")
	ErrRosterBlankID       = validationError("every roster slot must reference a player")
	ErrRosterDuplicate     = validationError("roster players must be distinct")
	ErrRosterUnknownPlayer = validationError("roster references an unknown player")

	// Composition
	ErrCompositionEmpty       = validationError("composition must contain at least one player")
	ErrCompositionBlankID     = validationError("every composition slot must reference a player")
	ErrCompositionDuplicate   = validationError("composition players must be distinct")
	ErrCompositionNotInRoster = validationError("composition must match the match roster")
	ErrCompositionPosition    = validationError("composition positions are invalid")
	ErrIncompleteTeams        = validationError("both teams must be complete when the match is created")
	ErrCompositionAtCreation  = validationError("composition is assigned after the match is created")

	// Match
	ErrMatchDateInvalid      = validationError("match date/time is invalid")
	ErrMatchLocationRequired = validationError("match location is required")
	ErrScoreInvalid          = validationError("scores must be non-negative integers")
	ErrScoreWithoutRoster    = validationError("score cannot be entered for a match without players")
	ErrMatchNotFound         = notFoundError("match not found")
	ErrMatchFrozen           = conflictError("match is played: roster, composition and details can no longer be modified")

	// Player
	ErrPlayerNameRequired = validationError("first name and last name are required")
	ErrPlayerEmailInvalid = validationError("email is not valid")
	ErrPlayerNotFound     = notFoundError("player not found")
	ErrPlayerInUse        = conflictError("player is referenced by a match roster or an MVP vote")

	// MVP
	ErrVoteParticipantsRequired = validationError("voter and voted-for player are required")
	ErrVoterRequired            = validationError("voter is required")
	ErrMatchNotPlayed           = validationError("match must be played before voting")
	ErrVoterNotInRoster         = validationError("voter must belong to the match roster")
	ErrVotedForNotInRoster      = validationError("voted-for player must belong to the match roster")
	ErrAlreadyVoted             = conflictError("this player has already voted for this match")
	ErrVoteNotFound             = notFoundError("vote not found")

	// Listing
	ErrInvalidLimit  = validationError("limit must be a positive integer")
	ErrInvalidOffset = validationError("offset must be a non-negative integer")
)

// positionError names the team whose positions failed validation.
func positionError(team, reason string) error {
	return fmt.Errorf("%w: team %s positions must be %s", ErrCompositionPosition, team, reason)
}
