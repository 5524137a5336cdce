package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/gajzzs/usbwarden/internal/config"
	"github.com/gajzzs/usbwarden/internal/logging"
	"github.com/gajzzs/usbwarden/internal/registry"
)

type recordingSender struct {
	name string
	err  error

	mu   sync.Mutex
	seen []string

	started chan struct{}
	release chan struct{}
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) Send(_ context.Context, rec registry.DeviceRecord) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	s.seen = append(s.seen, rec.DeviceID)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSender) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func sampleRecord(id string) registry.DeviceRecord {
	return registry.DeviceRecord{
		DeviceID:     id,
		FriendlyName: registry.DefaultFriendlyName,
		InsertTime:   time.Date(2026, 10, 15, 8, 5, 9, 0, time.Local),
	}
}

func TestQueueDeliversToAllSenders(t *testing.T) {
	failing := &recordingSender{name: "failing", err: errors.New("smtp down")}
	ok := &recordingSender{name: "ok"}

	q := NewQueue([]Sender{failing, ok}, logging.NewTestLogger())
	q.Notify(sampleRecord("VID_1234&PID_5678"))
	q.Notify(sampleRecord("VID_AAAA&PID_BBBB"))
	q.Close()

	assert.Equal(t, []string{"VID_1234&PID_5678", "VID_AAAA&PID_BBBB"}, failing.ids())
	assert.Equal(t, []string{"VID_1234&PID_5678", "VID_AAAA&PID_BBBB"}, ok.ids())
}

func TestQueueDropsWhenFull(t *testing.T) {
	s := &recordingSender{
		name:    "slow",
		started: make(chan struct{}, 3),
		release: make(chan struct{}),
	}
	q := NewQueue([]Sender{s}, logging.NewTestLogger(), WithQueueSize(1))

	q.Notify(sampleRecord("first"))
	<-s.started

	q.Notify(sampleRecord("second"))
	q.Notify(sampleRecord("dropped"))

	close(s.release)
	q.Close()

	assert.Equal(t, []string{"first", "second"}, s.ids())
}

func TestQueueNotifyAfterClose(t *testing.T) {
	s := &recordingSender{name: "ok"}
	q := NewQueue([]Sender{s}, logging.NewTestLogger())
	q.Close()
	q.Close()

	q.Notify(sampleRecord("late"))
	assert.Empty(t, s.ids())
}

func TestFormatArrivalEmail(t *testing.T) {
	subject, body := FormatArrivalEmail(sampleRecord("VID_1234&PID_5678"))

	assert.Equal(t, "USB Device Inserted: USB Storage Device", subject)
	assert.Equal(t, "A USB storage device has been inserted:\n\n"+
		"Device ID: VID_1234&PID_5678\n"+
		"Friendly Name: USB Storage Device\n"+
		"Time: 2026-10-15 08:05:09\n\n"+
		"Please review this device in the admin panel.", body)
}

func TestEmailSenderSend(t *testing.T) {
	s := NewEmailSender(config.SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "warden@example.com",
		To:   "admin@example.com, security@example.com",
	})

	var got *mail.Msg
	s.deliver = func(_ context.Context, msg *mail.Msg) error {
		got = msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), sampleRecord("VID_1234&PID_5678")))
	require.NotNil(t, got)
	assert.Equal(t, "email", s.Name())
}

func TestEmailSenderErrors(t *testing.T) {
	t.Run("bad sender", func(t *testing.T) {
		s := NewEmailSender(config.SMTPConfig{From: "not an address", To: "admin@example.com"})
		s.deliver = func(context.Context, *mail.Msg) error {
			t.Fatal("deliver must not be called")
			return nil
		}
		assert.Error(t, s.Send(context.Background(), sampleRecord("x")))
	})

	t.Run("delivery fails", func(t *testing.T) {
		s := NewEmailSender(config.SMTPConfig{From: "warden@example.com", To: "admin@example.com"})
		s.deliver = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }
		err := s.Send(context.Background(), sampleRecord("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, recipients(" a@example.com,, b@example.com "))
	assert.Nil(t, recipients(""))
}

type fakeBus struct {
	method string
	args   []interface{}
	err    error
}

func (f *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err}
}

func TestDesktopSender(t *testing.T) {
	bus := &fakeBus{}
	dials := 0
	d := NewDesktopSender()
	d.dial = func() (busCaller, error) {
		dials++
		return bus, nil
	}

	require.NoError(t, d.Send(context.Background(), sampleRecord("VID_1234&PID_5678")))
	assert.Equal(t, "org.freedesktop.Notifications.Notify", bus.method)
	require.Len(t, bus.args, 8)
	assert.Equal(t, "usbwarden", bus.args[0])
	assert.Equal(t, "USB Device Inserted: USB Storage Device", bus.args[3])
	assert.True(t, strings.Contains(bus.args[4].(string), "VID_1234&PID_5678"))

	require.NoError(t, d.Send(context.Background(), sampleRecord("x")))
	assert.Equal(t, 1, dials, "bus object is reused")

	bus.err = errors.New("no notification daemon")
	assert.Error(t, d.Send(context.Background(), sampleRecord("x")))
	bus.err = nil
	require.NoError(t, d.Send(context.Background(), sampleRecord("x")))
	assert.Equal(t, 2, dials, "failed call forces a redial")
}

func TestDesktopSenderDialError(t *testing.T) {
	d := NewDesktopSender()
	d.dial = func() (busCaller, error) { return nil, errors.New("no session bus") }
	assert.Error(t, d.Send(context.Background(), sampleRecord("x")))
}
