package rules

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("play card: %w", Action(CodeNotYourTurn, "not your turn"))

	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.ErrorIs(t, err, &Error{Kind: IllegalAction, Code: CodeNotYourTurn})
	assert.NotErrorIs(t, err, &Error{Kind: IllegalAction, Code: CodeBoardFull})
	assert.NotErrorIs(t, err, ErrIllegalInput)
	assert.NotErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, "play card: not your turn", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, IllegalInput, KindOf(Input(CodeCardNotFound, "x")))
	assert.Equal(t, InvariantViolation, KindOf(fmt.Errorf("wrap: %w", Invariant(CodeMissingToken, "y"))))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))

	assert.True(t, IsRejection(Input(CodeBadRequest, "x")))
	assert.True(t, IsRejection(Action(CodeFrozen, "x")))
	assert.False(t, IsRejection(Invariant(CodeCorruptState, "x")))
	assert.False(t, IsRejection(nil))
}

func TestGRPCStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		code codes.Code
	}{
		{Input(CodeTargetNotFound, "no such target"), codes.InvalidArgument},
		{Action(CodeGuardRequired, "must attack guard"), codes.FailedPrecondition},
		{Invariant(CodeMissingToken, "token missing"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			st, ok := status.FromError(fmt.Errorf("wrapped: %w", tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())

			details := st.Details()
			require.Len(t, details, 1)
			info, ok := details[0].(*errdetails.ErrorInfo)
			require.True(t, ok)
			assert.Equal(t, tt.err.Code, info.Reason)
			assert.Equal(t, tt.err.Kind.String(), info.Metadata["kind"])
		})
	}
}
