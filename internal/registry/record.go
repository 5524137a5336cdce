package registry

import (
	"time"
)

// DefaultFriendlyName is used for arrivals until a better name is known.
const DefaultFriendlyName = "USB Storage Device"

// Outcome of the last actuator call made for a record.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// EnforcementResult records what happened when the registry last asked the
// actuator to enable or disable the device. It is independent of IsAllowed.
type EnforcementResult struct {
	Action  string    `json:"action,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty"`
	At      time.Time `json:"at,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// DeviceRecord is one device believed to be connected.
type DeviceRecord struct {
	DeviceID        string            `json:"deviceId"`
	VendorID        string            `json:"vendorId"`
	ProductID       string            `json:"productId"`
	FriendlyName    string            `json:"friendlyName"`
	DevicePath      string            `json:"devicePath"`
	DriveLetter     string            `json:"driveLetter"`
	IsAllowed       bool              `json:"isAllowed"`
	InsertTime      time.Time         `json:"insertTime"`
	LastEnforcement EnforcementResult `json:"lastEnforcement"`

	// seq identifies one connection; an overwrite by a later arrival gets a new seq.
	seq uint64
}

// IsZero reports whether r is the empty record returned for unknown ids.
func (r DeviceRecord) IsZero() bool {
	return r.DeviceID == ""
}

// EventKind is the type of a hardware change notification.
type EventKind int

const (
	Arrival EventKind = iota
	Removal
)

func (k EventKind) String() string {
	switch k {
	case Arrival:
		return "arrival"
	case Removal:
		return "removal"
	default:
		return "unknown"
	}
}
