/*
 * Copyright © 2026 Kaleido, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package signer is the off-chain half of the gate: it holds the secp256k1
// authority key, signs authorization messages, and packages the signature as
// the secp256k1 companion instruction the on-ledger program consumes. Nothing
// here runs on the ledger.
package signer

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/wire"
)

// Authorizer wraps one authority keypair.
type Authorizer struct {
	keypair *secp256k1.KeyPair
}

func NewAuthorizer(ctx context.Context, privateKey []byte) (*Authorizer, error) {
	// btcec silently pads short keys, so length-check before it sees them
	if len(privateKey) != 32 {
		return nil, i18n.NewError(ctx, msgs.MsgSignerKeyInvalid)
	}
	kp, err := secp256k1.NewSecp256k1KeyPair(privateKey)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignerKeyInvalid)
	}
	return &Authorizer{keypair: kp}, nil
}

func GenerateAuthorizer() (*Authorizer, error) {
	kp, err := secp256k1.GenerateSecp256k1KeyPair()
	if err != nil {
		return nil, err
	}
	return &Authorizer{keypair: kp}, nil
}

// Address is the 20-byte authority identity the on-ledger record stores.
func (a *Authorizer) Address() ethtypes.Address0xHex {
	return a.keypair.Address
}

// Authorization is one signed message, ready to be packaged as a companion
// instruction.
type Authorization struct {
	Address    ethtypes.Address0xHex
	Signature  [wire.SignatureLength]byte
	RecoveryID uint8
	Message    []byte
}

// Authorize signs keccak-256 of the message with the authority key.
func (a *Authorizer) Authorize(ctx context.Context, message []byte) (*Authorization, error) {
	sig, err := a.keypair.SignDirect(message)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignerSignFailed)
	}
	auth := &Authorization{
		Address:    a.keypair.Address,
		RecoveryID: uint8(sig.V.Int64() - 27),
		Message:    message,
	}
	sig.R.FillBytes(auth.Signature[0:32])
	sig.S.FillBytes(auth.Signature[32:64])
	return auth, nil
}

// CompanionInstruction packages the authorization as the secp256k1
// verification instruction, self-referencing position instructionIndex in the
// transaction it will be submitted in.
func (auth *Authorization) CompanionInstruction(instructionIndex uint8) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: ledger.Secp256k1Program,
		Data:      wire.NewSecp256k1InstructionData(instructionIndex, auth.Address, auth.Signature, auth.RecoveryID, auth.Message),
	}
}
