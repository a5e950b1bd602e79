// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes32MarshalUnmarshal(t *testing.T) {
	originalHex := `"0x00000000000000000000000000000000000000000000000000006d6173746572"`

	var value Bytes32
	assert.NoError(t, json.Unmarshal([]byte(originalHex), &value))

	marshaled, err := json.Marshal(&value)
	assert.NoError(t, err)
	assert.Equal(t, originalHex, string(marshaled))

	var nilValue *Bytes32
	marshaled, err = nilValue.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "null", string(marshaled))
}

func TestParseBytes32(t *testing.T) {
	b, err := ParseBytes32("0x0102000000000000000000000000000000000000000000000000000000000003")
	assert.NoError(t, err)
	assert.Equal(t, byte(1), b[0])
	assert.Equal(t, byte(3), b[31])

	_, err = ParseBytes32("0x01")
	assert.EqualError(t, err, "invalid length")

	_, err = ParseBytes32("zz0102000000000000000000000000000000000000000000000000000000000003")
	assert.EqualError(t, err, "invalid prefix")

	assert.Panics(t, func() { MustParseBytes32("bad") })
}

func TestBytesToBytes32(t *testing.T) {
	assert.Equal(t, Bytes32{31: 7}, BytesToBytes32([]byte{7}))

	long := make([]byte, 40)
	long[39] = 9
	assert.Equal(t, Bytes32{31: 9}, BytesToBytes32(long))
}

func TestKeyAddress(t *testing.T) {
	var k Key
	k[0] = 2
	addr := k.Address()
	h := Blake2b(k[:])
	assert.Equal(t, h[12:], addr.Bytes())
	assert.False(t, addr.IsZero())

	parsed, err := ParseAddress(addr.String())
	assert.NoError(t, err)
	assert.Equal(t, addr, parsed)
	assert.Equal(t, 0, parsed.Compare(addr))
}
