package waveform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorTag
	}{
		{name: "nil error", err: nil, want: TagNone},
		{name: "cancelled", err: ErrCancelled, want: TagCancelled},
		{name: "wrapped cancelled", err: fmt.Errorf("task: %w", ErrCancelled), want: TagCancelled},
		{name: "spawn failure", err: ErrSpawnFailure, want: TagSpawnFailure},
		{name: "communication failure", err: ErrCommunicationFailure, want: TagCommunication},
		{name: "worker crash", err: ErrWorkerCrash, want: TagWorkerCrash},
		{name: "processing failure", err: ErrProcessingFailure, want: TagProcessing},
		{name: "unclassified error", err: errors.New("disk on fire"), want: TagProcessing},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Tag(tc.err))
		})
	}
}

func TestTagError(t *testing.T) {
	t.Parallel()

	t.Run("round trips every tag", func(t *testing.T) {
		t.Parallel()
		for _, sentinel := range []error{
			ErrSpawnFailure,
			ErrCommunicationFailure,
			ErrProcessingFailure,
			ErrWorkerCrash,
			ErrCancelled,
		} {
			got := TagError(Tag(sentinel), "detail")
			assert.ErrorIs(t, got, sentinel)
			assert.Contains(t, got.Error(), "detail")
		}
	})

	t.Run("none tag is nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, TagError(TagNone, ""))
	})

	t.Run("empty detail keeps the bare sentinel", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ErrCancelled, TagError(TagCancelled, ""))
	})

	t.Run("unknown tag is a protocol mismatch", func(t *testing.T) {
		t.Parallel()
		err := TagError(ErrorTag("segfault"), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCommunicationFailure)
	})
}
