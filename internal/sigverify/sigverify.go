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

// Package sigverify consumes the result of the secp256k1 verification
// instruction that ran earlier in the same transaction. It performs no curve
// arithmetic: the recovery already happened, atomically, before this program
// was entered. What this package enforces is the structural contract: the
// verification really is in this transaction, at an earlier index, fully
// self-contained, and its output is bound to the handler's own message and
// the stored authority.
package sigverify

import (
	"bytes"
	"context"
	"encoding/hex"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/types"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/wire"
)

// Recovered is the single-use output of one companion verification: the
// address the signature recovered to, and the hash it was recovered over.
type Recovered struct {
	Address     ethtypes.Address0xHex
	MessageHash [32]byte
}

// FromTransaction locates the companion verification instruction at the index
// the request names, validates the ordering and self-containment contract,
// and extracts the recovered material. Every structural violation is
// MissingPrecompile: from the gate's point of view there simply is no usable
// verification in the transaction.
func FromTransaction(ctx context.Context, call ledger.CallContext, precompileIndex uint8) (*Recovered, error) {
	idx := int(precompileIndex)
	if idx >= call.CurrentIndex() {
		return nil, types.NewProgramError(types.ErrMissingPrecompile,
			i18n.NewError(ctx, msgs.MsgPrecompileIndexOrder, idx, call.CurrentIndex()))
	}
	ins, err := call.InstructionAt(ctx, idx)
	if err != nil {
		return nil, types.NewProgramError(types.ErrMissingPrecompile, err)
	}
	if ins.ProgramID != ledger.Secp256k1Program {
		return nil, types.NewProgramError(types.ErrMissingPrecompile,
			i18n.NewError(ctx, msgs.MsgPrecompileNotFound, idx, ins.ProgramID))
	}
	payload, err := wire.ParseSecp256k1InstructionData(ctx, ins.Data)
	if err != nil {
		return nil, types.NewProgramError(types.ErrMissingPrecompile, err)
	}
	if payload.SignatureIx != precompileIndex || payload.AddressIx != precompileIndex || payload.MessageIx != precompileIndex {
		return nil, types.NewProgramError(types.ErrMissingPrecompile,
			i18n.NewError(ctx, msgs.MsgPrecompileCrossRef, payload.MessageIx, precompileIndex))
	}
	r := &Recovered{Address: payload.Address, MessageHash: payload.MessageHash()}
	log.L(ctx).Debugf("consumed secp256k1 verification at index %d: signer=%s", idx, r.Address)
	return r, nil
}

// Authorize binds the recovered material to the handler's locally constructed
// message and the stored authority address. The hash comparison defeats
// substitution of a validly signed but different message; the address
// comparison is the authorization decision itself.
func (r *Recovered) Authorize(ctx context.Context, expectedMessage []byte, authority ethtypes.Address0xHex) error {
	expected := wire.Keccak256(expectedMessage)
	if !bytes.Equal(expected[:], r.MessageHash[:]) {
		return types.NewProgramError(types.ErrMessageMismatch,
			i18n.NewError(ctx, msgs.MsgVerifyMessageMismatch,
				hex.EncodeToString(r.MessageHash[:]), hex.EncodeToString(expected[:])))
	}
	if r.Address != authority {
		return types.NewProgramError(types.ErrUnauthorized,
			i18n.NewError(ctx, msgs.MsgVerifyWrongSigner, r.Address, authority))
	}
	return nil
}
