package beacon

import (
	"errors"
	"fmt"

	"github.com/driftwood-systems/beacon/internal/protocol"
)

// Sentinel errors for use with errors.Is. The concrete error types below
// each implement Is so a caller can test against these without caring
// about the attached detail (instance name, id, family, ...).
var (
	ErrDuplicate           = errors.New("beacon: service already registered")
	ErrUnknown             = errors.New("beacon: no service registered with that id")
	ErrInvalidServiceType  = errors.New("beacon: invalid service type")
	ErrTxtEntryTooLong     = errors.New("beacon: txt entry too long")
	ErrSocketInit          = errors.New("beacon: socket initialization failed")
	ErrNoInterfacesJoined  = errors.New("beacon: no interfaces joined the multicast group")
	ErrShutdown            = errors.New("beacon: responder is shutting down")
)

// DuplicateError is returned by Register when instanceName is already
// registered under the same service type.
type DuplicateError struct {
	InstanceName string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("beacon: service %q already registered", e.InstanceName)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// UnknownError is returned by Unregister when id names no registered
// service.
type UnknownError struct {
	ID uint64
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("beacon: no service registered with id %d", e.ID)
}

func (e *UnknownError) Is(target error) bool { return target == ErrUnknown }

// InvalidServiceTypeError is returned by Register when serviceType fails
// DNS-SD service type validation, or when instanceName is empty or longer
// than one DNS label (63 bytes).
type InvalidServiceTypeError struct {
	ServiceType string
	Reason      string
}

func (e *InvalidServiceTypeError) Error() string {
	return fmt.Sprintf("beacon: invalid service type %q: %s", e.ServiceType, e.Reason)
}

func (e *InvalidServiceTypeError) Is(target error) bool { return target == ErrInvalidServiceType }

// TxtEntryTooLongError is returned by Register when a TXT entry exceeds
// protocol.MaxTXTEntryLength bytes once encoded.
type TxtEntryTooLongError struct {
	Entry string
}

func (e *TxtEntryTooLongError) Error() string {
	return fmt.Sprintf("beacon: txt entry exceeds %d bytes: %q", protocol.MaxTXTEntryLength, e.Entry)
}

func (e *TxtEntryTooLongError) Is(target error) bool { return target == ErrTxtEntryTooLong }

// SocketInitError is returned by Start when a family's socket could not
// be opened. Fatal: Start returns no Handle when this occurs.
type SocketInitError struct {
	Family protocol.Family
	Err    error
}

func (e *SocketInitError) Error() string {
	return fmt.Sprintf("beacon: socket init failed for %s: %v", e.Family, e.Err)
}

func (e *SocketInitError) Unwrap() error    { return e.Err }
func (e *SocketInitError) Is(target error) bool { return target == ErrSocketInit }

// NoInterfacesJoinedError is returned by Start when a requested family
// joined the multicast group on zero interfaces. Fatal, same as
// SocketInitError.
type NoInterfacesJoinedError struct {
	Family protocol.Family
}

func (e *NoInterfacesJoinedError) Error() string {
	return fmt.Sprintf("beacon: no interfaces joined the multicast group for %s", e.Family)
}

func (e *NoInterfacesJoinedError) Is(target error) bool { return target == ErrNoInterfacesJoined }

// ShutdownError is returned by Register/Unregister once the responder
// has begun or finished its drain sequence.
type ShutdownError struct{}

func (e *ShutdownError) Error() string { return "beacon: responder is shutting down" }

func (e *ShutdownError) Is(target error) bool { return target == ErrShutdown }
