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

// Package state owns the persisted authority record: one account per managed
// program, holding the off-chain authority address and the replay counter.
// Nothing else in the module writes these accounts.
package state

import (
	"bytes"
	"context"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
)

// Persisted layout (borsh, fixed field order, version prefix first so the
// layout can evolve without breaking existing records):
//
//	version (1) || program_id (32) || authority_address (20) || nonce (u64 le) || bump_seed (1)
const (
	AccountSize    = 1 + 32 + 20 + 8 + 1
	CurrentVersion = 1
)

// RecordSeed is the constant seed the authority record address and its
// signing capability are derived from, alongside the managed program id.
var RecordSeed = []byte("upgrade-gate")

// AuthorityAccount is the decoded authority record. Version 0 is the
// uninitialized state of a freshly allocated account.
type AuthorityAccount struct {
	Version   uint8
	Program   solana.PublicKey
	Authority ethtypes.Address0xHex
	Nonce     uint64
	Bump      uint8
}

func (a *AuthorityAccount) Initialized() bool {
	return a.Version != 0
}

// AdvanceNonce consumes the current nonce. Called exactly once per
// successfully authorized privileged action, never on a rejected one; this is
// what makes a consumed signature non-replayable.
func (a *AuthorityAccount) AdvanceNonce(ctx context.Context) error {
	if a.Nonce == math.MaxUint64 {
		return i18n.NewError(ctx, msgs.MsgStateNonceOverflow)
	}
	a.Nonce++
	return nil
}

// Load decodes an authority record from account data. A record of the right
// size with version 0 decodes to an uninitialized account.
func Load(ctx context.Context, acct *ledger.Account) (*AuthorityAccount, error) {
	if len(acct.Data) != AccountSize {
		return nil, i18n.NewError(ctx, msgs.MsgStateBadLength, len(acct.Data), AccountSize)
	}
	a := &AuthorityAccount{}
	if err := bin.NewBorshDecoder(acct.Data).Decode(a); err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgStateBadLength, len(acct.Data), AccountSize)
	}
	if a.Version > CurrentVersion {
		return nil, i18n.NewError(ctx, msgs.MsgStateBadVersion, a.Version)
	}
	return a, nil
}

// Save writes the record back into the account.
func (a *AuthorityAccount) Save(ctx context.Context, acct *ledger.Account) error {
	buf := bytes.NewBuffer(make([]byte, 0, AccountSize))
	if err := bin.NewBorshEncoder(buf).Encode(a); err != nil {
		return err
	}
	if buf.Len() != AccountSize || len(acct.Data) != AccountSize {
		return i18n.NewError(ctx, msgs.MsgStateBadLength, buf.Len(), AccountSize)
	}
	copy(acct.Data, buf.Bytes())
	return nil
}

// DeriveRecordAddress computes the program-derived address of the authority
// record for a managed program, and the bump that makes the derivation land
// off the curve. The bump is persisted at initialization and reused verbatim
// for delegated-call signing.
func DeriveRecordAddress(gateProgram, managedProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{RecordSeed, managedProgram[:]}, gateProgram)
}

// SignerSeeds is the seed set that grants the record's derived address signer
// privilege during a delegated call.
func SignerSeeds(managedProgram solana.PublicKey, bump uint8) [][]byte {
	return [][]byte{RecordSeed, managedProgram[:], {bump}}
}
