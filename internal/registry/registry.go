//go:generate mockgen -destination=mock_registry.go -package=registry github.com/gajzzs/usbwarden/internal/registry Actuator,Notifier

// Package registry holds the authoritative table of connected storage
// devices and their authorization state.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/identity"
	"github.com/gajzzs/usbwarden/internal/logging"
)

// Actuator realizes authorization decisions on the OS.
type Actuator interface {
	EnableDevice(deviceID string) bool
	DisableDevice(deviceID string) bool
}

// DetailedActuator is an Actuator that can also say why a change failed.
// The registry prefers it so the cause lands in LastEnforcement.
type DetailedActuator interface {
	Actuator
	SetDeviceEnabled(deviceID string, enable bool) error
}

var errActuatorFailed = errors.New("actuator reported failure")

// Notifier receives arrival notifications. Notify must not block for long
// and must not report failures back; it logs them.
type Notifier interface {
	Notify(record DeviceRecord)
}

// Registry is safe for concurrent use. The table lock is never held while
// calling the actuator or the notifier.
type Registry struct {
	mu      sync.Mutex
	devices map[string]DeviceRecord
	seq     uint64

	// enforceMu orders actuator calls so the OS sees allow/deny in the same
	// order the flags were written.
	enforceMu sync.Mutex

	actuator        Actuator
	notifier        Notifier
	autoDenyUnknown bool
	notify          bool
	now             func() time.Time

	logger zerolog.Logger
	events zerolog.Logger
}

type Option func(*Registry)

// WithAutoDenyUnknown makes new arrivals start denied and disables them on arrival.
func WithAutoDenyUnknown(deny bool) Option {
	return func(r *Registry) {
		r.autoDenyUnknown = deny
	}
}

// WithNotifications gates arrival notifications.
func WithNotifications(enabled bool) Option {
	return func(r *Registry) {
		r.notify = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates a registry. actuator and notifier may be nil.
func New(actuator Actuator, notifier Notifier, logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		devices:  make(map[string]DeviceRecord),
		actuator: actuator,
		notifier: notifier,
		now:      time.Now,
		logger:   logging.WithCategory(logger, logging.CategoryMonitor),
		events:   logging.WithCategory(logger, logging.CategoryEvent),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// HandleHardwareEvent is the entry point for event sources.
func (r *Registry) HandleHardwareEvent(kind EventKind, rawPath string) {
	switch kind {
	case Arrival:
		r.OnArrival(rawPath)
	case Removal:
		r.OnRemoval(rawPath)
	default:
		r.logger.Warn().Int("kind", int(kind)).Str("path", rawPath).Msg("Ignoring unknown hardware event")
	}
}

// OnArrival records a newly connected storage device. Non-storage paths are ignored.
func (r *Registry) OnArrival(rawPath string) {
	if !identity.IsStorageDevice(rawPath) {
		r.logger.Debug().Str("path", rawPath).Msg("Ignoring non-storage arrival")
		return
	}

	id := identity.ExtractDeviceID(rawPath)
	if !identity.IsParseable(id) {
		r.logger.Warn().Str("path", rawPath).Msg("Device path has no VID/PID markers; using raw path as id")
	}

	rec := DeviceRecord{
		DeviceID:     id,
		VendorID:     identity.ExtractVendorID(rawPath),
		ProductID:    identity.ExtractProductID(rawPath),
		FriendlyName: DefaultFriendlyName,
		DevicePath:   rawPath,
		IsAllowed:    !r.autoDenyUnknown,
		InsertTime:   r.now(),
	}

	r.mu.Lock()
	r.seq++
	rec.seq = r.seq
	r.devices[id] = rec
	r.mu.Unlock()

	r.logEvent("Device Inserted", rec)

	if r.autoDenyUnknown {
		r.enforceMu.Lock()
		// An Allow may have run between the insert and here; it owns the
		// OS state then.
		if r.stillDenied(id, rec.seq) {
			rec.LastEnforcement = r.enforce(id, rec.seq, false)
		}
		r.enforceMu.Unlock()
	}

	if r.notify && r.notifier != nil {
		r.notifier.Notify(rec)
	}
}

// OnRemoval forgets the device. Removing an unknown id does nothing.
func (r *Registry) OnRemoval(rawPath string) {
	id := identity.ExtractDeviceID(rawPath)

	r.mu.Lock()
	rec, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
	}
	r.mu.Unlock()

	if ok {
		r.logEvent("Device Removed", rec)
	}
}

// Allow marks the device allowed and asks the actuator to enable it. It
// returns false only when the id is unknown; actuator failures are kept in
// LastEnforcement.
func (r *Registry) Allow(deviceID string) bool {
	return r.setAllowed(deviceID, true)
}

// Deny marks the device denied and asks the actuator to disable it.
func (r *Registry) Deny(deviceID string) bool {
	return r.setAllowed(deviceID, false)
}

func (r *Registry) setAllowed(deviceID string, allowed bool) bool {
	r.enforceMu.Lock()
	defer r.enforceMu.Unlock()

	r.mu.Lock()
	rec, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	rec.IsAllowed = allowed
	r.devices[deviceID] = rec
	r.mu.Unlock()

	res := r.enforce(deviceID, rec.seq, allowed)

	verb := "denied"
	if allowed {
		verb = "allowed"
	}
	r.logger.Info().
		Str("device_id", deviceID).
		Str("enforcement", string(res.Outcome)).
		Msg("Device " + verb)
	return true
}

// enforce calls the actuator and stores the result on the record, unless
// the record was removed or replaced meanwhile. Callers hold enforceMu.
func (r *Registry) enforce(deviceID string, seq uint64, enable bool) EnforcementResult {
	if r.actuator == nil {
		return EnforcementResult{}
	}

	res := EnforcementResult{Action: "disable", Outcome: OutcomeSucceeded}
	if enable {
		res.Action = "enable"
	}
	if err := r.apply(deviceID, enable); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
	}
	res.At = r.now()

	r.mu.Lock()
	if cur, exists := r.devices[deviceID]; exists && cur.seq == seq {
		cur.LastEnforcement = res
		r.devices[deviceID] = cur
	}
	r.mu.Unlock()

	return res
}

func (r *Registry) apply(deviceID string, enable bool) error {
	if d, ok := r.actuator.(DetailedActuator); ok {
		return d.SetDeviceEnabled(deviceID, enable)
	}

	var ok bool
	if enable {
		ok = r.actuator.EnableDevice(deviceID)
	} else {
		ok = r.actuator.DisableDevice(deviceID)
	}
	if !ok {
		return errActuatorFailed
	}
	return nil
}

// stillDenied reports whether the record inserted with seq is live and denied.
func (r *Registry) stillDenied(deviceID string, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.devices[deviceID]
	return ok && cur.seq == seq && !cur.IsAllowed
}

func (r *Registry) IsAllowed(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.devices[deviceID]
	return ok && rec.IsAllowed
}

// Get returns the record for deviceID, or the zero record when absent.
func (r *Registry) Get(deviceID string) DeviceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.devices[deviceID]
}

// List returns all records ordered by insert time.
func (r *Registry) List() []DeviceRecord {
	r.mu.Lock()
	out := make([]DeviceRecord, 0, len(r.devices))
	for _, rec := range r.devices {
		out = append(out, rec)
	}
	r.mu.Unlock()

	sortRecords(out)
	return out
}

// Denied returns the records currently flagged as not allowed.
func (r *Registry) Denied() []DeviceRecord {
	r.mu.Lock()
	out := []DeviceRecord{}
	for _, rec := range r.devices {
		if !rec.IsAllowed {
			out = append(out, rec)
		}
	}
	r.mu.Unlock()

	sortRecords(out)
	return out
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.devices)
}

func (r *Registry) logEvent(event string, rec DeviceRecord) {
	r.events.Info().
		Str("device_id", rec.DeviceID).
		Str("name", rec.FriendlyName).
		Bool("allowed", rec.IsAllowed).
		Msg(event)
}

func sortRecords(recs []DeviceRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].InsertTime.Equal(recs[j].InsertTime) {
			return recs[i].InsertTime.Before(recs[j].InsertTime)
		}
		return recs[i].DeviceID < recs[j].DeviceID
	})
}
