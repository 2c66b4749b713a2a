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

package signer

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/state"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/wire"
)

// Request builders. Each privileged request is a pair of instructions, the
// secp256k1 companion verification followed by the gate instruction that
// consumes it, and the pair's position inside the submitted transaction is
// fixed by precompileIndex. The account ordering baked in here is the gate
// program's request contract.

// BuildInitialize builds the (unsigned) request that creates the authority
// record for a managed program. No companion instruction is needed: creation
// is gated by the record address derivation, not by a signature.
func BuildInitialize(gateProgram, managedProgram solana.PublicKey, authority ethtypes.Address0xHex) (*ledger.Instruction, error) {
	record, _, err := state.DeriveRecordAddress(gateProgram, managedProgram)
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeInstruction(wire.TagInitialize, &wire.InitializeArgs{
		Program:   managedProgram,
		Authority: authority,
	})
	if err != nil {
		return nil, err
	}
	return &ledger.Instruction{
		ProgramID: gateProgram,
		Accounts:  []ledger.AccountMeta{{Key: record, IsWritable: true}},
		Data:      data,
	}, nil
}

// SignRotation signs and assembles a rotation request.
func (a *Authorizer) SignRotation(ctx context.Context, gateProgram, managedProgram solana.PublicKey, newAuthority ethtypes.Address0xHex, nonce, expiry uint64, precompileIndex uint8) ([]ledger.Instruction, error) {
	record, _, err := state.DeriveRecordAddress(gateProgram, managedProgram)
	if err != nil {
		return nil, err
	}
	auth, err := a.Authorize(ctx, wire.RotationMessage(managedProgram, newAuthority, nonce, expiry))
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeInstruction(wire.TagRotate, &wire.RotateArgs{
		NewAuthority:    newAuthority,
		Nonce:           nonce,
		Expiry:          expiry,
		PrecompileIndex: precompileIndex,
	})
	if err != nil {
		return nil, err
	}
	return []ledger.Instruction{
		auth.CompanionInstruction(precompileIndex),
		{
			ProgramID: gateProgram,
			Accounts:  []ledger.AccountMeta{{Key: record, IsWritable: true}},
			Data:      data,
		},
	}, nil
}

// SignUpgrade signs and assembles an executable-upgrade request for a staged
// buffer.
func (a *Authorizer) SignUpgrade(ctx context.Context, gateProgram, managedProgram, buffer, spill solana.PublicKey, nonce, expiry uint64, precompileIndex uint8) ([]ledger.Instruction, error) {
	record, _, err := state.DeriveRecordAddress(gateProgram, managedProgram)
	if err != nil {
		return nil, err
	}
	programData, _, err := solana.FindProgramAddress([][]byte{managedProgram[:]}, ledger.BPFLoaderUpgradeable)
	if err != nil {
		return nil, err
	}
	auth, err := a.Authorize(ctx, wire.UpgradeMessage(managedProgram, buffer, nonce, expiry))
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeInstruction(wire.TagExecuteUpgrade, &wire.ExecuteUpgradeArgs{
		Buffer:          buffer,
		Nonce:           nonce,
		Expiry:          expiry,
		PrecompileIndex: precompileIndex,
	})
	if err != nil {
		return nil, err
	}
	return []ledger.Instruction{
		auth.CompanionInstruction(precompileIndex),
		{
			ProgramID: gateProgram,
			Accounts: []ledger.AccountMeta{
				{Key: record, IsWritable: true},
				{Key: programData, IsWritable: true},
				{Key: managedProgram, IsWritable: true},
				{Key: buffer, IsWritable: true},
				{Key: spill, IsWritable: true},
				{Key: ledger.SysVarRent},
				{Key: ledger.SysVarClock},
			},
			Data: data,
		},
	}, nil
}

// SignLoaderAuthority signs and assembles the request that hands loader-side
// upgrade authority to a new native account.
func (a *Authorizer) SignLoaderAuthority(ctx context.Context, gateProgram, managedProgram, newAuthority solana.PublicKey, nonce, expiry uint64, precompileIndex uint8) ([]ledger.Instruction, error) {
	record, _, err := state.DeriveRecordAddress(gateProgram, managedProgram)
	if err != nil {
		return nil, err
	}
	programData, _, err := solana.FindProgramAddress([][]byte{managedProgram[:]}, ledger.BPFLoaderUpgradeable)
	if err != nil {
		return nil, err
	}
	auth, err := a.Authorize(ctx, wire.LoaderAuthorityMessage(managedProgram, newAuthority, nonce, expiry))
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeInstruction(wire.TagSetLoaderAuthority, &wire.SetLoaderAuthorityArgs{
		NewAuthority:    newAuthority,
		Nonce:           nonce,
		Expiry:          expiry,
		PrecompileIndex: precompileIndex,
	})
	if err != nil {
		return nil, err
	}
	return []ledger.Instruction{
		auth.CompanionInstruction(precompileIndex),
		{
			ProgramID: gateProgram,
			Accounts: []ledger.AccountMeta{
				{Key: record, IsWritable: true},
				{Key: programData, IsWritable: true},
				{Key: newAuthority},
			},
			Data: data,
		},
	}, nil
}
