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

// Package invoker issues the delegated calls into the upgradeable loader once
// a request has been authorized. The call is signed with the authority
// record's derived address, a capability recomputed from fixed seeds rather
// than key material. A loader rejection surfaces as InvocationFailed,
// reverting the whole transaction.
package invoker

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/state"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/types"
)

// Loader instruction discriminants (u32 little-endian, loader wire contract).
const (
	LoaderInstrUpgrade      = 3
	LoaderInstrSetAuthority = 4
)

// ProgramDataAddress is the loader's derived account holding a program's
// executable bytes.
func ProgramDataAddress(program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{program[:]}, ledger.BPFLoaderUpgradeable)
}

func signingAddress(ctx context.Context, call ledger.CallContext, rec *state.AuthorityAccount) (solana.PublicKey, error) {
	addr, err := solana.CreateProgramAddress(state.SignerSeeds(rec.Program, rec.Bump), call.ProgramID())
	if err != nil {
		return solana.PublicKey{}, types.NewProgramError(types.ErrAccountMismatch,
			i18n.WrapError(ctx, err, msgs.MsgInvokeDeriveFailed, rec.Program))
	}
	return addr, nil
}

// UpgradeProgram replaces the managed program's executable with the staged
// buffer, spilling excess lamports to spill.
func UpgradeProgram(ctx context.Context, call ledger.CallContext, rec *state.AuthorityAccount, buffer, spill solana.PublicKey) error {
	authority, err := signingAddress(ctx, call, rec)
	if err != nil {
		return err
	}
	programData, _, err := ProgramDataAddress(rec.Program)
	if err != nil {
		return types.NewProgramError(types.ErrInvocationFailed,
			i18n.WrapError(ctx, err, msgs.MsgInvokeUpgradeFailed, rec.Program))
	}
	ins := ledger.Instruction{
		ProgramID: ledger.BPFLoaderUpgradeable,
		Accounts: []ledger.AccountMeta{
			{Key: programData, IsWritable: true},
			{Key: rec.Program, IsWritable: true},
			{Key: buffer, IsWritable: true},
			{Key: spill, IsWritable: true},
			{Key: ledger.SysVarRent},
			{Key: ledger.SysVarClock},
			{Key: authority, IsSigner: true},
		},
		Data: binary.LittleEndian.AppendUint32(nil, LoaderInstrUpgrade),
	}
	log.L(ctx).Infof("invoking loader upgrade program=%s buffer=%s", rec.Program, buffer)
	if err := call.InvokeSigned(ctx, ins, state.SignerSeeds(rec.Program, rec.Bump)); err != nil {
		return types.NewProgramError(types.ErrInvocationFailed,
			i18n.WrapError(ctx, err, msgs.MsgInvokeUpgradeFailed, rec.Program))
	}
	return nil
}

// SetLoaderAuthority hands the loader-side upgrade authority for the managed
// program to newAuthority. After this call commits, the gate's derived
// address can no longer authorize upgrades for the program.
func SetLoaderAuthority(ctx context.Context, call ledger.CallContext, rec *state.AuthorityAccount, newAuthority solana.PublicKey) error {
	authority, err := signingAddress(ctx, call, rec)
	if err != nil {
		return err
	}
	programData, _, err := ProgramDataAddress(rec.Program)
	if err != nil {
		return types.NewProgramError(types.ErrInvocationFailed,
			i18n.WrapError(ctx, err, msgs.MsgInvokeSetAuthFailed, rec.Program))
	}
	ins := ledger.Instruction{
		ProgramID: ledger.BPFLoaderUpgradeable,
		Accounts: []ledger.AccountMeta{
			{Key: programData, IsWritable: true},
			{Key: authority, IsSigner: true},
			{Key: newAuthority},
		},
		Data: binary.LittleEndian.AppendUint32(nil, LoaderInstrSetAuthority),
	}
	log.L(ctx).Infof("invoking loader set-authority program=%s newAuthority=%s", rec.Program, newAuthority)
	if err := call.InvokeSigned(ctx, ins, state.SignerSeeds(rec.Program, rec.Bump)); err != nil {
		return types.NewProgramError(types.ErrInvocationFailed,
			i18n.WrapError(ctx, err, msgs.MsgInvokeSetAuthFailed, rec.Program))
	}
	return nil
}
