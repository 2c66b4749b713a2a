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

// Package ledger is the interface boundary to the host execution environment.
// The gate program never talks to a real runtime directly: it is handed a
// CallContext scoped to one instruction inside one atomic transaction, and
// everything it can observe or affect goes through that interface. The
// in-process simulator implements these interfaces for tests and tooling.
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Well-known collaborator addresses. These mirror the host chain's native
// program ids; they are part of the invocation contract, not configuration.
var (
	BPFLoaderUpgradeable = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	Secp256k1Program     = solana.MustPublicKeyFromBase58("KeccakSecp256k11111111111111111111111111111")
	SystemProgram        = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	SysVarRent           = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	SysVarClock          = solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
)

// Account is the transaction-scoped view of one ledger account. Handlers
// mutate Data and Lamports in place; the host commits or reverts the whole
// transaction atomically.
type Account struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
	IsSigner   bool
	IsWritable bool
}

// AccountMeta names an account an instruction touches and the privileges it
// needs.
type AccountMeta struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is one request to one program within a transaction.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// CallContext is everything the host grants a program for the duration of one
// instruction. All methods are synchronous; nothing here suspends.
type CallContext interface {
	// ProgramID is the id the gate program itself is deployed under.
	ProgramID() solana.PublicKey

	// Accounts are the accounts supplied to this instruction, in order.
	Accounts() []*Account

	// CurrentIndex is this instruction's position in the transaction.
	CurrentIndex() int

	// InstructionAt exposes the transaction's instruction list for
	// introspection, so a handler can verify that a companion verification
	// instruction really executed earlier in the same transaction.
	InstructionAt(ctx context.Context, index int) (*Instruction, error)

	// InvokeSigned issues a delegated call to another program within the same
	// transaction, granting signer privilege to the address derived from
	// seeds under the calling program's id. No key material exists for that
	// address; the derivation itself is the capability.
	InvokeSigned(ctx context.Context, ins Instruction, seeds [][]byte) error

	// UnixTime is the ledger clock at transaction execution.
	UnixTime() int64
}
