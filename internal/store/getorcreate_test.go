package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type doc struct{ name string }

func TestGetOrCreate(t *testing.T) {
	errBoom := errors.New("boom")
	existing := &doc{name: "existing"}
	created := &doc{name: "created"}

	tests := []struct {
		name        string
		finds       []error // result of each find call, nil means hit
		createErr   error
		want        *doc
		wantCreated bool
		wantErr     error
		wantFinds   int
		wantCreates int
	}{
		{name: "hit", finds: []error{nil}, want: existing, wantFinds: 1},
		{name: "miss then create", finds: []error{ErrNotFound}, want: created, wantCreated: true, wantFinds: 1, wantCreates: 1},
		{name: "lost race observes winner", finds: []error{ErrNotFound, nil}, createErr: ErrDuplicate, want: existing, wantFinds: 2, wantCreates: 1},
		{name: "unresolved race is a conflict", finds: []error{ErrNotFound, ErrNotFound}, createErr: ErrDuplicate, wantErr: ErrConflict, wantFinds: 2, wantCreates: 1},
		{name: "find failure propagates", finds: []error{errBoom}, wantErr: errBoom, wantFinds: 1},
		{name: "create failure propagates", finds: []error{ErrNotFound}, createErr: errBoom, wantErr: errBoom, wantFinds: 1, wantCreates: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var finds, creates int
			find := func(context.Context) (*doc, error) {
				err := tt.finds[finds]
				finds++
				if err != nil {
					return nil, err
				}
				return existing, nil
			}
			create := func(context.Context) (*doc, error) {
				creates++
				if tt.createErr != nil {
					return nil, tt.createErr
				}
				return created, nil
			}

			got, wasCreated, err := GetOrCreate(context.Background(), find, create)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Same(t, tt.want, got)
			}
			require.Equal(t, tt.wantCreated, wasCreated)
			require.Equal(t, tt.wantFinds, finds)
			require.Equal(t, tt.wantCreates, creates)
		})
	}
}

func TestNewPairIsOrderIndependent(t *testing.T) {
	a, b := NewID(), NewID()

	require.Equal(t, NewPair(a, b), NewPair(b, a))
	require.Equal(t, NewPair(a, b).Key(), NewPair(b, a).Key())
	p := NewPair(b, a)
	require.Less(t, p[0].Hex(), p[1].Hex())
}

func TestParseID(t *testing.T) {
	id := NewID()

	got, err := ParseID(id.Hex())
	require.NoError(t, err)
	require.Equal(t, id, got)

	for _, raw := range []string{"", "nope", "zzzzzzzzzzzzzzzzzzzzzzzz", id.Hex() + "00"} {
		_, err := ParseID(raw)
		require.ErrorIs(t, err, ErrInvalidID, raw)
	}
}
