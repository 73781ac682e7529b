// internal/poller/modbus/block.go
package modbus

import "fmt"

// ReadBlock reads count contiguous holding registers starting at addr.
// Spans above MaxRegistersPerRead are split into back-to-back requests
// (125 + remainder) and concatenated. Any failing request fails the block.
func ReadBlock(r Reader, unitID uint8, addr, count uint16) ([]uint16, error) {
	if count == 0 {
		return nil, fmt.Errorf("modbus block: empty read at 0x%04X", addr)
	}
	if int(addr)+int(count) > 0x10000 {
		return nil, fmt.Errorf("modbus block: 0x%04X+%d exceeds address space", addr, count)
	}

	out := make([]uint16, 0, count)
	for done := uint16(0); done < count; {
		n := count - done
		if n > MaxRegistersPerRead {
			n = MaxRegistersPerRead
		}

		regs, err := r.ReadHoldingRegisters(unitID, addr+done, n)
		if err != nil {
			return nil, err
		}
		if len(regs) != int(n) {
			return nil, &LinkError{
				Op:      "read",
				Address: addr + done,
				Err:     fmt.Errorf("got %d registers, want %d", len(regs), n),
			}
		}

		out = append(out, regs...)
		done += n
	}
	return out, nil
}
