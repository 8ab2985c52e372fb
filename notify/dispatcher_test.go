package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
)

type captureSender struct {
	sent chan string
}

func newCaptureSender() *captureSender {
	return &captureSender{sent: make(chan string, 16)}
}

func (s *captureSender) Send(destination, body string) error {
	s.sent <- destination
	return nil
}

func (s *captureSender) Enabled() bool { return true }

func (s *captureSender) waitForSend(t *testing.T) string {
	t.Helper()
	select {
	case destination := <-s.sent:
		return destination
	case <-time.After(time.Second):
		t.Fatal("expected a notification to be sent")
		return ""
	}
}

func (s *captureSender) assertNoSend(t *testing.T) {
	t.Helper()
	select {
	case destination := <-s.sent:
		t.Fatalf("unexpected notification to %s", destination)
	case <-time.After(50 * time.Millisecond):
	}
}

func consentingEntrant(id string) *types.Entrant {
	return &types.Entrant{
		Id:            id,
		DisplayName:   "Some Name",
		RawContact:    "+15551230000",
		NotifyConsent: true,
		JoinedAt:      time.Now(),
	}
}

func TestAfterFrontRemovedNotifiesNewFront(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnRemove: true})
	d.AfterFrontRemoved("LOBBY", consentingEntrant("e1"))
	assert.Equal(t, "+15551230000", sender.waitForSend(t))
}

func TestAfterServeRespectsToggle(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnServe: false, NotifyOnRemove: true})
	d.AfterServe("LOBBY", consentingEntrant("e1"))
	sender.assertNoSend(t)

	d = NewDispatcher(sender, config.NotifierConfig{NotifyOnServe: true})
	d.AfterServe("LOBBY", consentingEntrant("e2"))
	sender.waitForSend(t)
}

func TestNoConsentNoNotification(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnRemove: true})
	entrant := consentingEntrant("e1")
	entrant.NotifyConsent = false
	d.AfterFrontRemoved("LOBBY", entrant)
	sender.assertNoSend(t)
}

func TestMissingContactSkipped(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnRemove: true})
	entrant := consentingEntrant("e1")
	entrant.RawContact = ""
	d.AfterFrontRemoved("LOBBY", entrant)
	sender.assertNoSend(t)
}

func TestNilFrontIsNoOp(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnServe: true, NotifyOnRemove: true})
	d.AfterServe("LOBBY", nil)
	d.AfterFrontRemoved("LOBBY", nil)
	sender.assertNoSend(t)
}

func TestEntrantNotifiedOnlyOnce(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnServe: true, NotifyOnRemove: true})
	entrant := consentingEntrant("e1")
	// both hooks fire for the same promotion, only one message goes out
	d.AfterFrontRemoved("LOBBY", entrant)
	sender.waitForSend(t)
	d.AfterServe("LOBBY", entrant)
	sender.assertNoSend(t)
}

func TestSameEntrantDifferentRooms(t *testing.T) {
	sender := newCaptureSender()
	d := NewDispatcher(sender, config.NotifierConfig{NotifyOnRemove: true})
	entrant := consentingEntrant("e1")
	d.AfterFrontRemoved("LOBBY", entrant)
	sender.waitForSend(t)
	d.AfterFrontRemoved("OTHER", entrant)
	sender.waitForSend(t)
}

func TestFailedSendIsSwallowed(t *testing.T) {
	d := NewDispatcher(failingSender{}, config.NotifierConfig{NotifyOnRemove: true})
	// must not panic or propagate anything
	d.AfterFrontRemoved("LOBBY", consentingEntrant("e1"))
	time.Sleep(50 * time.Millisecond)
}

type failingSender struct{}

func (failingSender) Send(destination, body string) error {
	return assert.AnError
}

func (failingSender) Enabled() bool { return true }
