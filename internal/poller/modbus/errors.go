// internal/poller/modbus/errors.go
package modbus

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
)

// ---- LIMITS ----

// MaxRegistersPerRead is the FC 3 quantity ceiling.
const MaxRegistersPerRead = 125

// MaxRegistersPerWrite is the FC 16 quantity ceiling.
const MaxRegistersPerWrite = 123

// ---- EXCEPTION CODES ----

const (
	ExceptionIllegalFunction     byte = modbus.ExceptionCodeIllegalFunction
	ExceptionIllegalDataAddress  byte = modbus.ExceptionCodeIllegalDataAddress
	ExceptionIllegalDataValue    byte = modbus.ExceptionCodeIllegalDataValue
	ExceptionServerDeviceFailure byte = modbus.ExceptionCodeServerDeviceFailure
)

// LinkError is a connection-level failure: refused, reset, timeout,
// closed mid-frame or a response that does not match the request.
type LinkError struct {
	Op      string
	Address uint16
	Err     error
}

func (e *LinkError) Error() string {
	if e.Op == "connect" {
		return fmt.Sprintf("modbus link: connect: %v", e.Err)
	}
	return fmt.Sprintf("modbus link: %s 0x%04X: %v", e.Op, e.Address, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// ProtocolError is an exception response from the device.
type ProtocolError struct {
	Op       string
	Address  uint16
	Function byte
	Code     byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("modbus exception: %s 0x%04X: function %d code %d", e.Op, e.Address, e.Function, e.Code)
}

// IsLink reports whether err carries a LinkError.
func IsLink(err error) bool {
	var le *LinkError
	return errors.As(err, &le)
}

// IsProtocol reports whether err carries a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// ExceptionCode returns the device exception code carried by err, if any.
func ExceptionCode(err error) (byte, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// classify maps a goburrow error onto the transport taxonomy.
// Anything that is not a device exception is treated as a link failure.
func classify(op string, addr uint16, err error) error {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return &ProtocolError{
			Op:       op,
			Address:  addr,
			Function: me.FunctionCode &^ 0x80,
			Code:     me.ExceptionCode,
		}
	}
	return &LinkError{Op: op, Address: addr, Err: err}
}
