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

package ledgersim

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
)

// Upgradeable loader account state. Layout mirrors the host loader: a u32
// little-endian state type, then state-specific fields.
const (
	loaderStateUninitialized = 0
	loaderStateBuffer        = 1
	loaderStateProgram       = 2
	loaderStateProgramData   = 3

	// buffer: type(4) || has_authority(1) || authority(32) || code
	bufferHeaderLen = 4 + 1 + 32
	// programdata: type(4) || slot(8) || has_authority(1) || authority(32) || code
	programDataHeaderLen = 4 + 8 + 1 + 32
)

// upgradeableLoader models the host loader's Upgrade and SetAuthority entry
// points, with the authority and buffer checks the real loader enforces. The
// gate only ever reaches it through delegated calls.
type upgradeableLoader struct{}

func (l *upgradeableLoader) Execute(ctx context.Context, call ledger.CallContext, data []byte) error {
	if len(data) < 4 {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "instruction data too short")
	}
	switch binary.LittleEndian.Uint32(data) {
	case 3: // Upgrade
		return l.upgrade(ctx, call)
	case 4: // SetAuthority
		return l.setAuthority(ctx, call)
	default:
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "unsupported loader instruction")
	}
}

func loaderAuthority(data []byte, headerStart int) (set bool, authority solana.PublicKey) {
	if data[headerStart] == 1 {
		set = true
		copy(authority[:], data[headerStart+1:])
	}
	return set, authority
}

func (l *upgradeableLoader) upgrade(ctx context.Context, call ledger.CallContext) error {
	accts := call.Accounts()
	if len(accts) < 7 {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "upgrade requires 7 accounts")
	}
	programData, program, buffer, spill := accts[0], accts[1], accts[2], accts[3]
	authority := accts[6]

	if len(programData.Data) < programDataHeaderLen ||
		binary.LittleEndian.Uint32(programData.Data) != loaderStateProgramData {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "invalid programdata account")
	}
	hasAuth, upgradeAuth := loaderAuthority(programData.Data, 12)
	if !hasAuth || upgradeAuth != authority.Key {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "incorrect upgrade authority")
	}
	if !authority.IsSigner {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "upgrade authority did not sign")
	}
	if len(buffer.Data) < bufferHeaderLen ||
		binary.LittleEndian.Uint32(buffer.Data) != loaderStateBuffer {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "invalid buffer account")
	}
	if hasAuth, bufferAuth := loaderAuthority(buffer.Data, 4); !hasAuth || bufferAuth != authority.Key {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "buffer authority mismatch")
	}
	code := buffer.Data[bufferHeaderLen:]
	if len(code) == 0 {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "buffer holds no program data")
	}
	capacity := len(programData.Data) - programDataHeaderLen
	if len(code) > capacity {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "buffer exceeds programdata capacity")
	}

	dst := programData.Data[programDataHeaderLen:]
	copy(dst, code)
	for i := len(code); i < len(dst); i++ {
		dst[i] = 0
	}
	spill.Lamports += buffer.Lamports
	buffer.Lamports = 0
	binary.LittleEndian.PutUint32(buffer.Data, loaderStateUninitialized)
	log.L(ctx).Infof("loader upgraded program %s from buffer %s (%d bytes)", program.Key, buffer.Key, len(code))
	return nil
}

func (l *upgradeableLoader) setAuthority(ctx context.Context, call ledger.CallContext) error {
	accts := call.Accounts()
	if len(accts) < 3 {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "set-authority requires 3 accounts")
	}
	programData, current, next := accts[0], accts[1], accts[2]

	if len(programData.Data) < programDataHeaderLen ||
		binary.LittleEndian.Uint32(programData.Data) != loaderStateProgramData {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "invalid programdata account")
	}
	hasAuth, upgradeAuth := loaderAuthority(programData.Data, 12)
	if !hasAuth || upgradeAuth != current.Key {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "incorrect upgrade authority")
	}
	if !current.IsSigner {
		return i18n.NewError(ctx, msgs.MsgSimLoaderReject, "upgrade authority did not sign")
	}
	programData.Data[12] = 1
	copy(programData.Data[13:45], next.Key[:])
	log.L(ctx).Infof("loader authority for programdata %s handed to %s", programData.Key, next.Key)
	return nil
}

// NewBufferAccount builds a staged buffer account holding code, upgradeable
// by authority.
func NewBufferAccount(key, authority solana.PublicKey, lamports uint64, code []byte) *ledger.Account {
	data := make([]byte, bufferHeaderLen+len(code))
	binary.LittleEndian.PutUint32(data, loaderStateBuffer)
	data[4] = 1
	copy(data[5:37], authority[:])
	copy(data[bufferHeaderLen:], code)
	return &ledger.Account{Key: key, Owner: ledger.BPFLoaderUpgradeable, Lamports: lamports, Data: data}
}

// NewProgramDataAccount builds a programdata account with the given code
// capacity, upgradeable by authority.
func NewProgramDataAccount(key, authority solana.PublicKey, capacity int) *ledger.Account {
	data := make([]byte, programDataHeaderLen+capacity)
	binary.LittleEndian.PutUint32(data, loaderStateProgramData)
	data[12] = 1
	copy(data[13:45], authority[:])
	return &ledger.Account{Key: key, Owner: ledger.BPFLoaderUpgradeable, Data: data}
}

// ProgramDataCode is the executable bytes currently deployed in a
// programdata account.
func ProgramDataCode(a *ledger.Account) []byte {
	return a.Data[programDataHeaderLen:]
}

// ProgramDataAuthority is the current loader-side upgrade authority, if set.
func ProgramDataAuthority(a *ledger.Account) (bool, solana.PublicKey) {
	return loaderAuthority(a.Data, 12)
}
