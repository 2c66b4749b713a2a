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

// Package processor is the gate program's entrypoint: it decodes each request
// into exactly one operation and runs it against the authority record, the
// companion signature verification, and (for privileged operations that touch
// the loader) the delegated-call invoker. Any error rolls back the whole
// transaction in the host, so handlers never undo partial work themselves.
package processor

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/internal/invoker"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/internal/sigverify"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/state"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/types"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/wire"
)

// Account positions per operation. Order is part of the request contract.
const (
	idxRecord = 0

	// ExecuteUpgrade
	idxUpgradeProgramData = 1
	idxUpgradeProgram     = 2
	idxUpgradeBuffer      = 3
	idxUpgradeSpill       = 4
	upgradeAccountCount   = 7 // + rent, clock

	// SetLoaderAuthority
	idxSetAuthNewAuthority = 2
	setAuthAccountCount    = 3
)

type Processor struct{}

func New() *Processor {
	return &Processor{}
}

// Process decodes and dispatches one request. Exactly one handler runs per
// invocation.
func (p *Processor) Process(ctx context.Context, call ledger.CallContext, data []byte) error {
	ins, err := wire.DecodeInstruction(ctx, data)
	if err != nil {
		return err
	}
	log.L(ctx).Infof("instruction: %s", ins.Tag)
	switch ins.Tag {
	case wire.TagInitialize:
		return p.initialize(ctx, call, ins.Initialize)
	case wire.TagRotate:
		return p.rotate(ctx, call, ins.Rotate)
	case wire.TagExecuteUpgrade:
		return p.executeUpgrade(ctx, call, ins.ExecuteUpgrade)
	default:
		return p.setLoaderAuthority(ctx, call, ins.SetLoaderAuthority)
	}
}

func requireAccounts(ctx context.Context, call ledger.CallContext, n int) ([]*ledger.Account, error) {
	accts := call.Accounts()
	if len(accts) < n {
		return nil, types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgAccountsTooFew, n, len(accts)))
	}
	return accts, nil
}

func (p *Processor) initialize(ctx context.Context, call ledger.CallContext, args *wire.InitializeArgs) error {
	accts, err := requireAccounts(ctx, call, 1)
	if err != nil {
		return err
	}
	record := accts[idxRecord]

	if args.Authority == (ethtypes.Address0xHex{}) {
		return types.NewProgramError(types.ErrDeserialize,
			i18n.NewError(ctx, msgs.MsgStateAuthorityZero))
	}
	expected, bump, err := state.DeriveRecordAddress(call.ProgramID(), args.Program)
	if err != nil || expected != record.Key {
		return types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgStateWrongAccount, record.Key, args.Program))
	}
	rec, err := state.Load(ctx, record)
	if err != nil {
		return types.NewProgramError(types.ErrDeserialize, err)
	}
	if rec.Initialized() {
		return types.NewProgramError(types.ErrAlreadyInitialized,
			i18n.NewError(ctx, msgs.MsgStateAlreadyInitialized, args.Program))
	}
	rec.Version = state.CurrentVersion
	rec.Program = args.Program
	rec.Authority = args.Authority
	rec.Nonce = 0
	rec.Bump = bump
	if err := rec.Save(ctx, record); err != nil {
		return types.NewProgramError(types.ErrDeserialize, err)
	}
	log.L(ctx).Infof("initialized authority record for program %s: authority=%s", args.Program, args.Authority)
	return nil
}

// loadRecord decodes the authority record and re-derives its address from the
// persisted program id and bump, so a record account cannot be swapped in
// from a different managed program.
func (p *Processor) loadRecord(ctx context.Context, call ledger.CallContext, record *ledger.Account) (*state.AuthorityAccount, error) {
	rec, err := state.Load(ctx, record)
	if err != nil {
		return nil, types.NewProgramError(types.ErrDeserialize, err)
	}
	if !rec.Initialized() {
		return nil, types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgStateNotInitialized, record.Key))
	}
	derived, err := solana.CreateProgramAddress(state.SignerSeeds(rec.Program, rec.Bump), call.ProgramID())
	if err != nil || derived != record.Key {
		return nil, types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgStateWrongAccount, record.Key, rec.Program))
	}
	return rec, nil
}

// checkFreshness enforces the serialization point of every privileged
// operation: the request must name the stored nonce exactly, and an expired
// authorization is no authorization.
func (p *Processor) checkFreshness(ctx context.Context, call ledger.CallContext, rec *state.AuthorityAccount, nonce, expiry uint64) error {
	if nonce != rec.Nonce {
		return types.NewProgramError(types.ErrNonceMismatch,
			i18n.NewError(ctx, msgs.MsgStateNonceMismatch, nonce, rec.Nonce))
	}
	if expiry != 0 {
		// compare unsigned: expiry is a caller-supplied u64 and may exceed
		// the signed clock range
		if now := call.UnixTime(); now > 0 && uint64(now) > expiry {
			return types.NewProgramError(types.ErrUnauthorized,
				i18n.NewError(ctx, msgs.MsgVerifyMessageExpired, expiry, now))
		}
	}
	return nil
}

func (p *Processor) rotate(ctx context.Context, call ledger.CallContext, args *wire.RotateArgs) error {
	accts, err := requireAccounts(ctx, call, 1)
	if err != nil {
		return err
	}
	record := accts[idxRecord]

	rec, err := p.loadRecord(ctx, call, record)
	if err != nil {
		return err
	}
	if err := p.checkFreshness(ctx, call, rec, args.Nonce, args.Expiry); err != nil {
		return err
	}
	if args.NewAuthority == (ethtypes.Address0xHex{}) {
		return types.NewProgramError(types.ErrDeserialize,
			i18n.NewError(ctx, msgs.MsgStateAuthorityZero))
	}
	recovered, err := sigverify.FromTransaction(ctx, call, args.PrecompileIndex)
	if err != nil {
		return err
	}
	message := wire.RotationMessage(rec.Program, args.NewAuthority, args.Nonce, args.Expiry)
	if err := recovered.Authorize(ctx, message, rec.Authority); err != nil {
		return err
	}

	log.L(ctx).Infof("rotating authority for program %s: %s -> %s", rec.Program, rec.Authority, args.NewAuthority)
	rec.Authority = args.NewAuthority
	if err := rec.AdvanceNonce(ctx); err != nil {
		return types.NewProgramError(types.ErrNonceMismatch, err)
	}
	if err := rec.Save(ctx, record); err != nil {
		return types.NewProgramError(types.ErrDeserialize, err)
	}
	return nil
}

func (p *Processor) executeUpgrade(ctx context.Context, call ledger.CallContext, args *wire.ExecuteUpgradeArgs) error {
	accts, err := requireAccounts(ctx, call, upgradeAccountCount)
	if err != nil {
		return err
	}
	record := accts[idxRecord]

	rec, err := p.loadRecord(ctx, call, record)
	if err != nil {
		return err
	}
	if program := accts[idxUpgradeProgram]; program.Key != rec.Program {
		return types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgStateWrongAccount, program.Key, rec.Program))
	}
	// The signed buffer must be the buffer account actually handed to the
	// loader, or the signature authorizes a different executable.
	if buffer := accts[idxUpgradeBuffer]; buffer.Key != args.Buffer {
		return types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgStateWrongAccount, buffer.Key, rec.Program))
	}
	if err := p.checkFreshness(ctx, call, rec, args.Nonce, args.Expiry); err != nil {
		return err
	}
	recovered, err := sigverify.FromTransaction(ctx, call, args.PrecompileIndex)
	if err != nil {
		return err
	}
	message := wire.UpgradeMessage(rec.Program, args.Buffer, args.Nonce, args.Expiry)
	if err := recovered.Authorize(ctx, message, rec.Authority); err != nil {
		return err
	}

	if err := invoker.UpgradeProgram(ctx, call, rec, args.Buffer, accts[idxUpgradeSpill].Key); err != nil {
		return err
	}
	if err := rec.AdvanceNonce(ctx); err != nil {
		return types.NewProgramError(types.ErrNonceMismatch, err)
	}
	if err := rec.Save(ctx, record); err != nil {
		return types.NewProgramError(types.ErrDeserialize, err)
	}
	return nil
}

func (p *Processor) setLoaderAuthority(ctx context.Context, call ledger.CallContext, args *wire.SetLoaderAuthorityArgs) error {
	accts, err := requireAccounts(ctx, call, setAuthAccountCount)
	if err != nil {
		return err
	}
	record := accts[idxRecord]

	rec, err := p.loadRecord(ctx, call, record)
	if err != nil {
		return err
	}
	if newAuth := accts[idxSetAuthNewAuthority]; newAuth.Key != args.NewAuthority {
		return types.NewProgramError(types.ErrAccountMismatch,
			i18n.NewError(ctx, msgs.MsgStateWrongAccount, newAuth.Key, rec.Program))
	}
	if err := p.checkFreshness(ctx, call, rec, args.Nonce, args.Expiry); err != nil {
		return err
	}
	recovered, err := sigverify.FromTransaction(ctx, call, args.PrecompileIndex)
	if err != nil {
		return err
	}
	message := wire.LoaderAuthorityMessage(rec.Program, args.NewAuthority, args.Nonce, args.Expiry)
	if err := recovered.Authorize(ctx, message, rec.Authority); err != nil {
		return err
	}

	if err := invoker.SetLoaderAuthority(ctx, call, rec, args.NewAuthority); err != nil {
		return err
	}
	if err := rec.AdvanceNonce(ctx); err != nil {
		return types.NewProgramError(types.ErrNonceMismatch, err)
	}
	if err := rec.Save(ctx, record); err != nil {
		return types.NewProgramError(types.ErrDeserialize, err)
	}
	return nil
}
