// Copyright © 2026 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeMessageLayout(t *testing.T) {
	program := testKey(0xAA)
	buffer := testKey(0xBB)

	msg := UpgradeMessage(program, buffer, 0x0102030405060708, 0x1112131415161718)
	require.Len(t, msg, 32+1+32+8+8)

	assert.Equal(t, program[:], msg[0:32])
	assert.Equal(t, byte(TagExecuteUpgrade), msg[32])
	assert.Equal(t, buffer[:], msg[33:65])
	assert.Equal(t, uint64(0x0102030405060708), binary.BigEndian.Uint64(msg[65:73]))
	assert.Equal(t, uint64(0x1112131415161718), binary.BigEndian.Uint64(msg[73:81]))
}

func TestRotationMessageLayout(t *testing.T) {
	program := testKey(0xAA)
	newAuthority := testAddress(0xCC)

	msg := RotationMessage(program, newAuthority, 5, 0)
	require.Len(t, msg, 32+1+20+8+8)

	assert.Equal(t, byte(TagRotate), msg[32])
	assert.Equal(t, newAuthority[:], msg[33:53])
	assert.Equal(t, uint64(5), binary.BigEndian.Uint64(msg[53:61]))
	assert.Equal(t, uint64(0), binary.BigEndian.Uint64(msg[61:69]))
}

func TestLoaderAuthorityMessageDistinctFromUpgrade(t *testing.T) {
	program := testKey(0xAA)
	target := testKey(0xBB)

	// same payload bytes, different tag byte, so the two operations can
	// never consume each other's signatures
	upgrade := UpgradeMessage(program, target, 1, 0)
	handoff := LoaderAuthorityMessage(program, target, 1, 0)
	assert.NotEqual(t, upgrade, handoff)
	assert.NotEqual(t, Keccak256(upgrade), Keccak256(handoff))
}

func TestKeccak256KnownVector(t *testing.T) {
	// keccak-256(""), the ethereum empty-input digest
	empty := Keccak256(nil)
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(empty[:]))
}
