package common

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexStrRoundTrip(t *testing.T) {
	b := RandBytes32()
	s := ByteSliceToPureHexStr(b[:])
	assert.Len(t, s, 64)
	assert.Equal(t, b, HexStrToBytes32(s))
	assert.Equal(t, b, HexStrToBytes32("0x"+s))
}

func TestTrimAndPrepend0xPrefix(t *testing.T) {
	assert.Equal(t, "deadbeef", Trim0xPrefix("0xdeadbeef"))
	assert.Equal(t, "deadbeef", Trim0xPrefix("0Xdeadbeef"))
	assert.Equal(t, "deadbeef", Trim0xPrefix("deadbeef"))
	assert.Equal(t, "0xdeadbeef", Prepend0xPrefix("deadbeef"))
	assert.Equal(t, "0xdeadbeef", Prepend0xPrefix("0xdeadbeef"))
}

func TestBigIntHexStr(t *testing.T) {
	v := big.NewInt(255)
	assert.Equal(t, "0xff", BigIntToHexStr(v))
	assert.Equal(t, 0, v.Cmp(HexStrToBigInt("0xff")))
	assert.Nil(t, HexStrToBigInt("zz"))
}

func TestBigIntClone(t *testing.T) {
	v := big.NewInt(42)
	c := BigIntClone(v)
	c.Add(c, big.NewInt(1))
	assert.Equal(t, int64(42), v.Int64())
	assert.Equal(t, int64(43), c.Int64())
}
