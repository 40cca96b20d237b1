package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vovakirdan/pairchat/internal/store"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Detail
	}{
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: Detail{
				Type:       "UnavailableError",
				Message:    "The service is temporarily unavailable.",
				Resolution: "Try again later.",
			},
		},
		{
			name: "defaults",
			err:  newError(KindSelfTarget, "", nil),
			want: Detail{
				Type:       "SelfTargetError",
				Message:    "You cannot create a private room with yourself.",
				Resolution: "Please select a different user to chat with.",
			},
		},
		{
			name: "forbidden defaults",
			err:  NewError(KindForbidden, "", nil),
			want: Detail{
				Type:       "ForbiddenError",
				Message:    "You are not a participant of this room.",
				Resolution: "Join the room before reading it.",
			},
		},
		{
			name: "overrides",
			err:  newError(KindNotFound, "Room does not exist.", nil).WithResolution("Join first."),
			want: Detail{
				Type:       "NotFoundError",
				Message:    "Room does not exist.",
				Resolution: "Join first.",
			},
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("handler: %w", newError(KindValidation, "Receiver is required.", nil)),
			want: Detail{
				Type:       "ValidationError",
				Message:    "Receiver is required.",
				Resolution: "Check the required fields and their format.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.err); got != tt.want {
				t.Fatalf("Describe() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFromStore(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{store.ErrNotFound, KindNotFound},
		{store.ErrInvalidID, KindValidation},
		{store.ErrConflict, KindConflict},
		{fmt.Errorf("find: %w", context.DeadlineExceeded), KindUnavailable},
		{errors.New("connection reset"), KindUnavailable},
	}
	for _, tt := range tests {
		if got := FromStore(tt.err, "").Kind; got != tt.want {
			t.Fatalf("FromStore(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
