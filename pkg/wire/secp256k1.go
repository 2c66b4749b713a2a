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
	"context"
	"encoding/binary"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
)

// Data layout of the native secp256k1 verification program, single-signature
// form, with every referenced byte range inside the instruction's own data:
//
//	count (1) ||
//	signature_offset (u16 le) || signature_instruction_index (u8) ||
//	address_offset (u16 le)   || address_instruction_index (u8)   ||
//	message_offset (u16 le)   || message_size (u16 le) || message_instruction_index (u8) ||
//	eth_address (20) || signature (64) || recovery_id (1) || message
//
// The runtime executes this instruction before the gate program runs and
// fails the whole transaction unless
// ecrecover(keccak(message), signature, recovery_id) == eth_address.
const (
	SignatureLength = 64
	AddressLength   = 20

	secpOffsetsStart  = 1
	secpOffsetsLength = 11
	secpAddressOffset = secpOffsetsStart + secpOffsetsLength
	secpSigOffset     = secpAddressOffset + AddressLength
	secpMessageOffset = secpSigOffset + SignatureLength + 1
)

// Secp256k1Payload is the parsed content of one companion instruction: the
// claimed signer address, the signature, and the message the signature was
// verified over.
type Secp256k1Payload struct {
	Address     ethtypes.Address0xHex
	Signature   [SignatureLength]byte
	RecoveryID  uint8
	Message     []byte
	SignatureIx uint8
	AddressIx   uint8
	MessageIx   uint8
}

// MessageHash is the hash the verification program proved a signature over.
func (p *Secp256k1Payload) MessageHash() [32]byte {
	return Keccak256(p.Message)
}

// NewSecp256k1InstructionData builds companion instruction data for one
// signature, self-referencing the instruction at instructionIndex.
func NewSecp256k1InstructionData(instructionIndex uint8, address ethtypes.Address0xHex, signature [SignatureLength]byte, recoveryID uint8, message []byte) []byte {
	data := make([]byte, secpMessageOffset+len(message))
	data[0] = 1
	off := data[secpOffsetsStart:]
	binary.LittleEndian.PutUint16(off[0:2], secpSigOffset)
	off[2] = instructionIndex
	binary.LittleEndian.PutUint16(off[3:5], secpAddressOffset)
	off[5] = instructionIndex
	binary.LittleEndian.PutUint16(off[6:8], secpMessageOffset)
	binary.LittleEndian.PutUint16(off[8:10], uint16(len(message)))
	off[10] = instructionIndex
	copy(data[secpAddressOffset:], address[:])
	copy(data[secpSigOffset:], signature[:])
	data[secpSigOffset+SignatureLength] = recoveryID
	copy(data[secpMessageOffset:], message)
	return data
}

// ParseSecp256k1InstructionData decodes the single-signature form. Multi
// signature instructions and offsets pointing outside the instruction's own
// data are rejected: the gate only consumes self-contained verifications.
func ParseSecp256k1InstructionData(ctx context.Context, data []byte) (*Secp256k1Payload, error) {
	if len(data) < secpOffsetsStart+secpOffsetsLength {
		return nil, i18n.NewError(ctx, msgs.MsgPrecompileShortData, len(data))
	}
	if count := data[0]; count != 1 {
		return nil, i18n.NewError(ctx, msgs.MsgPrecompileCount, count)
	}
	off := data[secpOffsetsStart:]
	p := &Secp256k1Payload{
		SignatureIx: off[2],
		AddressIx:   off[5],
		MessageIx:   off[10],
	}
	sigOffset := int(binary.LittleEndian.Uint16(off[0:2]))
	addrOffset := int(binary.LittleEndian.Uint16(off[3:5]))
	msgOffset := int(binary.LittleEndian.Uint16(off[6:8]))
	msgSize := int(binary.LittleEndian.Uint16(off[8:10]))
	if sigOffset+SignatureLength+1 > len(data) ||
		addrOffset+AddressLength > len(data) ||
		msgOffset+msgSize > len(data) {
		return nil, i18n.NewError(ctx, msgs.MsgPrecompileOffsets)
	}
	copy(p.Address[:], data[addrOffset:])
	copy(p.Signature[:], data[sigOffset:])
	p.RecoveryID = data[sigOffset+SignatureLength]
	p.Message = data[msgOffset : msgOffset+msgSize]
	return p, nil
}
