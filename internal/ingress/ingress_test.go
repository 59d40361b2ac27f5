package ingress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-dev/argus/internal/ingress"
)

func newSurface(cap int) (*ingress.Surface, chan ingress.Event, chan ingress.Command) {
	events := make(chan ingress.Event, cap)
	commands := make(chan ingress.Command, cap)
	return ingress.New(events, commands, "v1.0.0", "v1.9.9"), events, commands
}

func TestSubmit_RejectsMissingSessionID(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.Submit(context.Background(), ingress.Event{ProjectPath: "/p"})
	assert.ErrorIs(t, err, ingress.ErrMissingSessionID)
}

func TestSubmit_RejectsMissingProjectPath(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.Submit(context.Background(), ingress.Event{SessionID: "s1"})
	assert.ErrorIs(t, err, ingress.ErrMissingProjectPath)
}

func TestSubmit_AcceptsValidEventAndEnqueues(t *testing.T) {
	s, events, _ := newSurface(1)
	ev := ingress.Event{Type: ingress.EventSessionStart, SessionID: "s1", ProjectPath: "/p"}
	require.NoError(t, s.Submit(context.Background(), ev))

	got := <-events
	assert.Equal(t, ev, got)
}

func TestSubmit_ProtocolVersionWithinRangeAccepted(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.Submit(context.Background(), ingress.Event{
		SessionID: "s1", ProjectPath: "/p", ProtocolVersion: "1.5.0",
	})
	assert.NoError(t, err)
}

func TestSubmit_ProtocolVersionBelowMinRejected(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.Submit(context.Background(), ingress.Event{
		SessionID: "s1", ProjectPath: "/p", ProtocolVersion: "0.5.0",
	})
	assert.ErrorIs(t, err, ingress.ErrUnsupportedProtocolVersion)
}

func TestSubmit_ProtocolVersionAboveMaxRejected(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.Submit(context.Background(), ingress.Event{
		SessionID: "s1", ProjectPath: "/p", ProtocolVersion: "2.0.0",
	})
	assert.ErrorIs(t, err, ingress.ErrUnsupportedProtocolVersion)
}

func TestSubmit_InvalidSemverRejected(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.Submit(context.Background(), ingress.Event{
		SessionID: "s1", ProjectPath: "/p", ProtocolVersion: "not-a-version",
	})
	assert.ErrorIs(t, err, ingress.ErrUnsupportedProtocolVersion)
}

func TestSubmit_BlocksUntilContextCancelledWhenInboxFull(t *testing.T) {
	s, _, _ := newSurface(0) // unbuffered, no receiver
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Submit(ctx, ingress.Event{SessionID: "s1", ProjectPath: "/p"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSubmitCommand_OpenProjectRequiresPath(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.SubmitCommand(context.Background(), ingress.Command{Type: ingress.CommandOpenProject})
	assert.ErrorIs(t, err, ingress.ErrMissingProjectPath)
}

func TestSubmitCommand_CopyPathRequiresPath(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.SubmitCommand(context.Background(), ingress.Command{Type: ingress.CommandCopyPath})
	assert.Error(t, err)
}

func TestSubmitCommand_UnknownTypeRejected(t *testing.T) {
	s, _, _ := newSurface(1)
	err := s.SubmitCommand(context.Background(), ingress.Command{Type: "bogus"})
	assert.Error(t, err)
}

func TestSubmitCommand_ValidEnqueues(t *testing.T) {
	s, _, commands := newSurface(1)
	cmd := ingress.Command{Type: ingress.CommandOpenProject, ProjectPath: "/p"}
	require.NoError(t, s.SubmitCommand(context.Background(), cmd))
	assert.Equal(t, cmd, <-commands)
}
