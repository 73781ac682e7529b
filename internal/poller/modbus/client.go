// internal/poller/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// DefaultTimeout bounds dial and each request when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Reader is the read half of the transport used by block decoders.
type Reader interface {
	ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) // FC 3
}

// Writer is the write half used by control commands.
type Writer interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error // FC 16
}

// Config is minimal transport config.
type Config struct {
	Address     string // host:port
	Timeout     time.Duration
	IdleTimeout time.Duration
}

// Client is a single TCP link to one inverter.
// It serializes requests because it mutates SlaveId per request.
// The connection is opened lazily by the first request after Close.
type Client struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	address string
}

// New creates an unconnected client.
func New(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("modbus client: address required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	h := modbus.NewTCPClientHandler(cfg.Address)
	h.Timeout = timeout
	if cfg.IdleTimeout > 0 {
		h.IdleTimeout = cfg.IdleTimeout
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
		address: cfg.Address,
	}, nil
}

// Address returns the configured host:port.
func (c *Client) Address() string {
	return c.address
}

// Connect dials eagerly. Requests connect on their own when needed.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.handler.Connect(); err != nil {
		return &LinkError{Op: "connect", Err: err}
	}
	return nil
}

// Close drops the connection. Safe to call repeatedly and before Connect.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ReadHoldingRegisters issues one FC 3 request. qty must be within
// MaxRegistersPerRead; use ReadBlock for larger spans.
func (c *Client) ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) {
	if qty == 0 || qty > MaxRegistersPerRead {
		return nil, fmt.Errorf("modbus client: read quantity %d out of range 1..%d", qty, MaxRegistersPerRead)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, classify("read", addr, err)
	}
	if len(b) != int(qty)*2 {
		return nil, &LinkError{
			Op:      "read",
			Address: addr,
			Err:     fmt.Errorf("short response: got %d bytes, want %d", len(b), int(qty)*2),
		}
	}

	return unpackRegisters(b), nil
}

// WriteRegisters issues one FC 16 request.
func (c *Client) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 || len(regs) > MaxRegistersPerWrite {
		return fmt.Errorf("modbus client: write quantity %d out of range 1..%d", len(regs), MaxRegistersPerWrite)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	qty := uint16(len(regs))
	if _, err := c.client.WriteMultipleRegisters(addr, qty, packRegisters(regs)); err != nil {
		return classify("write", addr, err)
	}
	return nil
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

func unpackRegisters(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return out
}
