// internal/block/identity.go
package block

import (
	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/codec"
	"github.com/tamzrod/saj-modbus/internal/status"
)

// Identity block geometry. Same on every supported family.
const (
	IdentityAddress uint16 = 0x8F00
	IdentityCount   uint16 = 29
)

var identityWords = []word{
	{key: status.KeyDevType, off: 0},
	{key: status.KeySubType, off: 1},
	{key: status.KeyCommVer, off: 2, factor: 0.001, prec: 3},
	{key: status.KeyDisplayVer, off: 23, factor: 0.001, prec: 3},
	{key: status.KeyMasterVer, off: 24, factor: 0.001, prec: 3},
	{key: status.KeySlaveVer, off: 25, factor: 0.001, prec: 3},
	{key: status.KeyDisplayHWVer, off: 26, factor: 0.001, prec: 3},
	{key: status.KeyControlHWVer, off: 27, factor: 0.001, prec: 3},
	{key: status.KeyPowerHWVer, off: 28, factor: 0.001, prec: 3},
}

// Identity is read once per coordinator lifetime.
var Identity = Layout{
	Name:   "identity",
	Reads:  []Read{{Address: IdentityAddress, Count: IdentityCount}},
	Decode: decodeIdentity,
}

func decodeIdentity(regs []uint16, _ *zap.Logger) (status.Fields, error) {
	if err := checkLen("identity", regs, int(IdentityCount)); err != nil {
		return nil, err
	}

	out := make(status.Fields, len(identityWords)+2)
	decodeWords(regs, identityWords, out)

	out[status.KeySerial] = codec.PackedASCII(regs[3:13])
	out[status.KeyPC] = codec.PackedASCII(regs[13:23])

	return out, nil
}
