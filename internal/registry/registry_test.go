package registry

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gajzzs/usbwarden/internal/logging"
)

const (
	samplePath = `\\?\USB#VID_1234&PID_5678#0001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`
	sampleID   = "VID_1234&PID_5678"
)

var fixedTime = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newTestRegistry(a Actuator, n Notifier, opts ...Option) *Registry {
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	return New(a, n, logging.NewTestLogger(), opts...)
}

func storagePath(i int) string {
	return fmt.Sprintf(`\\?\USB#VID_%04X&PID_%04X#%d#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`, i, i, i)
}

func TestArrivalInsertsAllowedByDefault(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	reg := newTestRegistry(NewMockActuator(ctrl), nil)
	reg.OnArrival(samplePath)

	require.Equal(t, 1, reg.Count())
	rec := reg.Get(sampleID)
	assert.Equal(t, sampleID, rec.DeviceID)
	assert.Equal(t, "1234", rec.VendorID)
	assert.Equal(t, "5678", rec.ProductID)
	assert.Equal(t, DefaultFriendlyName, rec.FriendlyName)
	assert.Equal(t, samplePath, rec.DevicePath)
	assert.True(t, rec.IsAllowed)
	assert.True(t, reg.IsAllowed(sampleID))
	assert.Equal(t, fixedTime, rec.InsertTime)
	assert.Equal(t, OutcomeNone, rec.LastEnforcement.Outcome)
}

func TestArrivalOverwritesExistingRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	act := NewMockActuator(ctrl)
	act.EXPECT().DisableDevice(sampleID).Return(true)

	reg := newTestRegistry(act, nil)
	reg.OnArrival(samplePath)
	require.True(t, reg.Deny(sampleID))

	reg.OnArrival(samplePath)
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.IsAllowed(sampleID), "re-insertion replaces the denied record")
	assert.Equal(t, OutcomeNone, reg.Get(sampleID).LastEnforcement.Outcome)
}

func TestArrivalIgnoresNonStorage(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	reg.OnArrival(`\\?\HID#VID_046D&PID_C52B&MI_00#7&1#{4d1e55b2-f16f-11cf-88cb-001111000030}`)
	reg.HandleHardwareEvent(Arrival, "")

	assert.Equal(t, 0, reg.Count())
}

func TestArrivalAutoDenyDisablesDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	act := NewMockActuator(ctrl)
	act.EXPECT().DisableDevice(sampleID).Return(false)

	reg := newTestRegistry(act, nil, WithAutoDenyUnknown(true))
	reg.OnArrival(samplePath)

	rec := reg.Get(sampleID)
	assert.False(t, rec.IsAllowed)
	assert.Equal(t, "disable", rec.LastEnforcement.Action)
	assert.Equal(t, OutcomeFailed, rec.LastEnforcement.Outcome)
}

func TestAllowDuringAutoDenyArrivalWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	act := NewMockActuator(ctrl)
	act.EXPECT().EnableDevice(sampleID).Return(true)

	var reg *Registry
	var once sync.Once
	hook := zerolog.HookFunc(func(_ *zerolog.Event, _ zerolog.Level, msg string) {
		if msg == "Device Inserted" {
			once.Do(func() { require.True(t, reg.Allow(sampleID)) })
		}
	})
	reg = New(act, nil, zerolog.New(io.Discard).Hook(hook),
		WithAutoDenyUnknown(true),
		WithClock(func() time.Time { return fixedTime }),
	)

	reg.OnArrival(samplePath)

	rec := reg.Get(sampleID)
	assert.True(t, rec.IsAllowed)
	assert.Equal(t, "enable", rec.LastEnforcement.Action, "the OS state must follow the flag")
	assert.Equal(t, OutcomeSucceeded, rec.LastEnforcement.Outcome)
}

type detailedActuator struct {
	err   error
	calls []bool
}

func (d *detailedActuator) EnableDevice(string) bool  { panic("SetDeviceEnabled is preferred") }
func (d *detailedActuator) DisableDevice(string) bool { panic("SetDeviceEnabled is preferred") }

func (d *detailedActuator) SetDeviceEnabled(_ string, enable bool) error {
	d.calls = append(d.calls, enable)
	return d.err
}

func TestEnforcementKeepsFailureCause(t *testing.T) {
	act := &detailedActuator{err: errors.New("device not found: VID_1234&PID_5678")}
	reg := newTestRegistry(act, nil)
	reg.OnArrival(samplePath)

	require.True(t, reg.Deny(sampleID))
	rec := reg.Get(sampleID)
	assert.Equal(t, OutcomeFailed, rec.LastEnforcement.Outcome)
	assert.Equal(t, "device not found: VID_1234&PID_5678", rec.LastEnforcement.Error)

	act.err = nil
	require.True(t, reg.Allow(sampleID))
	rec = reg.Get(sampleID)
	assert.Equal(t, OutcomeSucceeded, rec.LastEnforcement.Outcome)
	assert.Empty(t, rec.LastEnforcement.Error)
	assert.Equal(t, []bool{false, true}, act.calls)
}

func TestArrivalNotification(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		t.Cleanup(ctrl.Finish)

		n := NewMockNotifier(ctrl)
		n.EXPECT().Notify(gomock.Any()).Do(func(rec DeviceRecord) {
			assert.Equal(t, sampleID, rec.DeviceID)
		}).Times(1)

		reg := newTestRegistry(nil, n, WithNotifications(true))
		reg.OnArrival(samplePath)
		reg.OnRemoval(samplePath)
	})

	t.Run("disabled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		t.Cleanup(ctrl.Finish)

		n := NewMockNotifier(ctrl)
		reg := newTestRegistry(nil, n, WithNotifications(false))
		reg.OnArrival(samplePath)
	})
}

func TestNotifyRunsWithoutTableLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	n := NewMockNotifier(ctrl)
	var reg *Registry
	n.EXPECT().Notify(gomock.Any()).Do(func(DeviceRecord) {
		// Would deadlock if the table lock were still held.
		assert.Equal(t, 1, reg.Count())
	})

	reg = newTestRegistry(nil, n, WithNotifications(true))
	reg.OnArrival(samplePath)
}

func TestRemoval(t *testing.T) {
	reg := newTestRegistry(nil, nil)
	reg.OnArrival(samplePath)
	reg.OnArrival(storagePath(1))
	require.Equal(t, 2, reg.Count())

	reg.HandleHardwareEvent(Removal, samplePath)
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Get(sampleID).IsZero())

	reg.OnRemoval(samplePath)
	reg.OnRemoval(`\\?\USB#VID_9999&PID_9999#x`)
	assert.Equal(t, 1, reg.Count())
}

func TestAllowDenyUnknownDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	reg := newTestRegistry(NewMockActuator(ctrl), nil)
	reg.OnArrival(samplePath)

	assert.False(t, reg.Allow("VID_0000&PID_0000"))
	assert.False(t, reg.Deny("VID_0000&PID_0000"))
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Get("VID_0000&PID_0000").IsZero())
	assert.False(t, reg.IsAllowed("VID_0000&PID_0000"))
}

func TestDenyScenario(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	act := NewMockActuator(ctrl)
	act.EXPECT().DisableDevice(sampleID).Return(true).Times(1)

	reg := newTestRegistry(act, nil)
	reg.HandleHardwareEvent(Arrival, `\\?\USB#VID_1234&PID_5678#...`)
	require.True(t, reg.IsAllowed(sampleID))

	assert.True(t, reg.Deny(sampleID))
	assert.False(t, reg.IsAllowed(sampleID))

	rec := reg.Get(sampleID)
	assert.Equal(t, "disable", rec.LastEnforcement.Action)
	assert.Equal(t, OutcomeSucceeded, rec.LastEnforcement.Outcome)

	denied := reg.Denied()
	require.Len(t, denied, 1)
	assert.Equal(t, sampleID, denied[0].DeviceID)
}

func TestAllowSucceedsWhenActuatorFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	act := NewMockActuator(ctrl)
	gomock.InOrder(
		act.EXPECT().DisableDevice(sampleID).Return(false),
		act.EXPECT().EnableDevice(sampleID).Return(false),
	)

	reg := newTestRegistry(act, nil)
	reg.OnArrival(samplePath)

	assert.True(t, reg.Deny(sampleID))
	assert.False(t, reg.IsAllowed(sampleID), "flag is updated even though enforcement failed")

	assert.True(t, reg.Allow(sampleID))
	rec := reg.Get(sampleID)
	assert.True(t, rec.IsAllowed)
	assert.Equal(t, "enable", rec.LastEnforcement.Action)
	assert.Equal(t, OutcomeFailed, rec.LastEnforcement.Outcome)
	assert.Equal(t, errActuatorFailed.Error(), rec.LastEnforcement.Error)
}

func TestEnforcementResultDroppedForRemovedDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	var reg *Registry
	act := NewMockActuator(ctrl)
	act.EXPECT().DisableDevice(sampleID).DoAndReturn(func(string) bool {
		reg.OnRemoval(samplePath)
		reg.OnArrival(samplePath)
		return true
	})

	reg = newTestRegistry(act, nil)
	reg.OnArrival(samplePath)
	require.True(t, reg.Deny(sampleID))

	rec := reg.Get(sampleID)
	assert.True(t, rec.IsAllowed)
	assert.Equal(t, OutcomeNone, rec.LastEnforcement.Outcome, "result belongs to the previous connection")
}

func TestListOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	reg := New(nil, nil, logging.NewTestLogger(), WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	reg.OnArrival(storagePath(3))
	reg.OnArrival(storagePath(1))
	reg.OnArrival(storagePath(2))

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "VID_0003&PID_0003", list[0].DeviceID)
	assert.Equal(t, "VID_0001&PID_0001", list[1].DeviceID)
	assert.Equal(t, "VID_0002&PID_0002", list[2].DeviceID)
	assert.Empty(t, reg.Denied())
}

func TestConcurrentArrivalRemoval(t *testing.T) {
	const n = 200
	reg := New(nil, nil, logging.NewTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.HandleHardwareEvent(Arrival, storagePath(i))
			if i%2 == 0 {
				reg.HandleHardwareEvent(Removal, storagePath(i))
			}
		}(i)
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.List()
			_ = reg.Count()
		}()
	}
	wg.Wait()

	assert.Equal(t, n/2, reg.Count())
	for _, rec := range reg.List() {
		assert.NotEmpty(t, rec.DeviceID)
	}
}

func TestConcurrentAllowDeny(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	act := NewMockActuator(ctrl)
	act.EXPECT().EnableDevice(gomock.Any()).Return(true).AnyTimes()
	act.EXPECT().DisableDevice(gomock.Any()).Return(true).AnyTimes()

	reg := newTestRegistry(act, nil)
	for i := 0; i < 10; i++ {
		reg.OnArrival(storagePath(i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("VID_%04X&PID_%04X", i%10, i%10)
			if i%3 == 0 {
				assert.True(t, reg.Deny(id))
			} else {
				assert.True(t, reg.Allow(id))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, reg.Count())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "arrival", Arrival.String())
	assert.Equal(t, "removal", Removal.String())
	assert.Equal(t, "unknown", EventKind(9).String())
}
