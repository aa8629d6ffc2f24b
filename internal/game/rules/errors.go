package rules

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies why an action was rejected.
type Kind int

const (
	// IllegalInput covers unknown ids and malformed requests.
	IllegalInput Kind = iota + 1
	// IllegalAction covers well-formed requests the rules forbid right now.
	IllegalAction
	// InvariantViolation means the engine or its data is broken.
	InvariantViolation
)

var kindNames = map[Kind]string{
	IllegalInput:       "ILLEGAL_INPUT",
	IllegalAction:      "ILLEGAL_ACTION",
	InvariantViolation: "INVARIANT_VIOLATION",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// Sentinels for errors.Is checks against a Kind.
var (
	ErrIllegalInput       = &Error{Kind: IllegalInput}
	ErrIllegalAction      = &Error{Kind: IllegalAction}
	ErrInvariantViolation = &Error{Kind: InvariantViolation}
)

// Machine-readable rejection reasons.
const (
	CodeGameNotFound     = "GAME_NOT_FOUND"
	CodeDeckNotFound     = "DECK_NOT_FOUND"
	CodeCardNotFound     = "CARD_NOT_FOUND"
	CodeTargetNotFound   = "TARGET_NOT_FOUND"
	CodeAttackerNotFound = "ATTACKER_NOT_FOUND"
	CodeUnknownPlayer    = "UNKNOWN_PLAYER"
	CodeBadRequest       = "BAD_REQUEST"

	CodeGameFinished      = "GAME_FINISHED"
	CodeNotYourTurn       = "NOT_YOUR_TURN"
	CodeWrongPhase        = "WRONG_PHASE"
	CodeNotInHand         = "NOT_IN_HAND"
	CodeInsufficientMana  = "INSUFFICIENT_MANA"
	CodeBoardFull         = "BOARD_FULL"
	CodeCannotAttack      = "CANNOT_ATTACK"
	CodeAlreadyAttacked   = "ALREADY_ATTACKED"
	CodeFrozen            = "FROZEN"
	CodeGuardRequired     = "GUARD_REQUIRED"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeInvalidDeck       = "INVALID_DECK"
	CodeDeckNotOwned      = "DECK_NOT_OWNED"
	CodeMissingToken      = "MISSING_TOKEN"
	CodeUnknownEffect     = "UNKNOWN_EFFECT"
	CodeCorruptState      = "CORRUPT_STATE"
	CodeInconsistentState = "INCONSISTENT_STATE"
)

// Error is a classified rule failure. Any action returning one leaves the
// persisted game untouched.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches another *Error of the same Kind, and the same Code when the
// other error carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// GRPCStatus maps the error onto a gRPC status with an ErrorInfo detail.
func (e *Error) GRPCStatus() *status.Status {
	code := codes.Unknown
	switch e.Kind {
	case IllegalInput:
		code = codes.InvalidArgument
	case IllegalAction:
		code = codes.FailedPrecondition
	case InvariantViolation:
		code = codes.Internal
	}
	st := status.New(code, e.Error())
	withDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   e.Code,
		Domain:   "spellfaire",
		Metadata: map[string]string{"kind": e.Kind.String()},
	})
	if err != nil {
		return st
	}
	return withDetails
}

// Input builds an IllegalInput error.
func Input(code, format string, args ...any) *Error {
	return &Error{Kind: IllegalInput, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Action builds an IllegalAction error.
func Action(code, format string, args ...any) *Error {
	return &Error{Kind: IllegalAction, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Invariant builds an InvariantViolation error.
func Invariant(code, format string, args ...any) *Error {
	return &Error{Kind: InvariantViolation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or 0 when err is not a rule error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// IsRejection reports whether err is an expected player-facing rejection
// rather than a failure.
func IsRejection(err error) bool {
	k := KindOf(err)
	return k == IllegalInput || k == IllegalAction
}
