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

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"golang.org/x/crypto/sha3"
)

// The authorization message the off-chain key signs is exactly:
//
//	program_id (32) || tag (1) || payload || nonce (8, big-endian) || expiry (8, big-endian, 0 = none)
//
// keccak-256 of these bytes is what the secp256k1 companion instruction
// verifies, and what the handlers recompute locally. Nonce is big-endian to
// match the hashing convention the authority tooling has always used.
func authorizationMessage(program solana.PublicKey, tag Tag, payload []byte, nonce, expiry uint64) []byte {
	msg := make([]byte, 0, 32+1+len(payload)+16)
	msg = append(msg, program[:]...)
	msg = append(msg, byte(tag))
	msg = append(msg, payload...)
	msg = binary.BigEndian.AppendUint64(msg, nonce)
	msg = binary.BigEndian.AppendUint64(msg, expiry)
	return msg
}

// RotationMessage is signed to replace the stored authority address.
func RotationMessage(program solana.PublicKey, newAuthority ethtypes.Address0xHex, nonce, expiry uint64) []byte {
	return authorizationMessage(program, TagRotate, newAuthority[:], nonce, expiry)
}

// UpgradeMessage is signed to replace the managed program's executable with
// the staged buffer.
func UpgradeMessage(program, buffer solana.PublicKey, nonce, expiry uint64) []byte {
	return authorizationMessage(program, TagExecuteUpgrade, buffer[:], nonce, expiry)
}

// LoaderAuthorityMessage is signed to hand loader-side upgrade authority to a
// new native account.
func LoaderAuthorityMessage(program, newAuthority solana.PublicKey, nonce, expiry uint64) []byte {
	return authorizationMessage(program, TagSetLoaderAuthority, newAuthority[:], nonce, expiry)
}

// Keccak256 is the single fixed hash over the message bytes.
func Keccak256(data []byte) [32]byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	var h32 [32]byte
	_ = hash.Sum(h32[0:0])
	return h32
}
