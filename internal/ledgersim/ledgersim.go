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

// Package ledgersim is an in-process model of the host execution environment,
// implementing the ledger interfaces the gate program is written against. It
// gives transactions the two guarantees the gate depends on: instructions run
// strictly in order within one transaction, and every account mutation in a
// transaction commits atomically or not at all. Accounts touched by a
// transaction are exclusively locked for its duration, and committed state
// can be persisted through a SQL database so harness runs survive restarts.
package ledgersim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
)

// Program is a native handler registered under a program id.
type Program interface {
	Execute(ctx context.Context, call ledger.CallContext, data []byte) error
}

// ProgramFunc adapts a plain function to Program.
type ProgramFunc func(ctx context.Context, call ledger.CallContext, data []byte) error

func (f ProgramFunc) Execute(ctx context.Context, call ledger.CallContext, data []byte) error {
	return f(ctx, call, data)
}

// Transaction is an ordered list of instructions executed as one atomic unit.
type Transaction struct {
	Instructions []ledger.Instruction
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
}

type Simulator struct {
	mux      sync.Mutex
	programs map[solana.PublicKey]Program
	accounts map[solana.PublicKey]*ledger.Account
	locks    map[solana.PublicKey]*sync.Mutex
	db       *accountDB
	now      func() int64
}

// New builds a simulator. With a configured database URI, previously
// committed accounts are loaded back and every commit is written through.
func New(ctx context.Context, conf *Config) (*Simulator, error) {
	s := &Simulator{
		programs: map[solana.PublicKey]Program{},
		accounts: map[solana.PublicKey]*ledger.Account{},
		locks:    map[solana.PublicKey]*sync.Mutex{},
		now:      func() int64 { return time.Now().Unix() },
	}
	s.programs[ledger.Secp256k1Program] = &secp256k1Verifier{}
	s.programs[ledger.BPFLoaderUpgradeable] = &upgradeableLoader{}
	if conf != nil && conf.Database.URI != "" {
		db, err := newAccountDB(ctx, &conf.Database)
		if err != nil {
			return nil, err
		}
		accts, err := db.loadAccounts(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range accts {
			s.accounts[a.Key] = a
		}
		s.db = db
		log.L(ctx).Infof("ledger simulator restored %d accounts", len(accts))
	}
	return s, nil
}

// Register installs a native program handler.
func (s *Simulator) Register(programID solana.PublicKey, p Program) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.programs[programID] = p
}

// SetClock overrides the ledger clock (tests).
func (s *Simulator) SetClock(now func() int64) {
	s.now = now
}

// SetAccount installs or replaces a committed account outside any
// transaction, as genesis/test setup.
func (s *Simulator) SetAccount(a *ledger.Account) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.accounts[a.Key] = copyAccount(a)
}

// CreateAccount allocates a zeroed account of the given size.
func (s *Simulator) CreateAccount(key, owner solana.PublicKey, size int) {
	s.SetAccount(&ledger.Account{Key: key, Owner: owner, Data: make([]byte, size)})
}

// GetAccount returns a copy of the committed state of an account.
func (s *Simulator) GetAccount(key solana.PublicKey) (*ledger.Account, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	a, ok := s.accounts[key]
	if !ok {
		return nil, false
	}
	return copyAccount(a), true
}

func copyAccount(a *ledger.Account) *ledger.Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// referencedKeys is every account a transaction can touch, deduplicated and
// sorted so locks are always taken in the same order.
func (tx *Transaction) referencedKeys() []solana.PublicKey {
	seen := map[solana.PublicKey]bool{}
	for _, ins := range tx.Instructions {
		for _, m := range ins.Accounts {
			seen[m.Key] = true
		}
	}
	keys := make([]solana.PublicKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (s *Simulator) lockAccounts(keys []solana.PublicKey) func() {
	s.mux.Lock()
	muxes := make([]*sync.Mutex, len(keys))
	for i, k := range keys {
		if s.locks[k] == nil {
			s.locks[k] = &sync.Mutex{}
		}
		muxes[i] = s.locks[k]
	}
	s.mux.Unlock()
	for _, m := range muxes {
		m.Lock()
	}
	return func() {
		for i := len(muxes) - 1; i >= 0; i-- {
			muxes[i].Unlock()
		}
	}
}

// Execute runs one transaction. Every instruction runs in order against a
// working copy of the referenced accounts; the first error discards the
// working copy entirely and is returned to the caller, otherwise the working
// copy replaces committed state in one step.
func (s *Simulator) Execute(ctx context.Context, tx *Transaction) error {
	txID := uuid.New()
	ctx = log.WithLogField(ctx, "txid", txID.String())

	keys := tx.referencedKeys()
	unlock := s.lockAccounts(keys)
	defer unlock()

	// Transaction-scoped working copies; unknown accounts materialize empty.
	working := map[solana.PublicKey]*ledger.Account{}
	s.mux.Lock()
	for _, k := range keys {
		if committed, ok := s.accounts[k]; ok {
			working[k] = copyAccount(committed)
		} else {
			working[k] = &ledger.Account{Key: k, Owner: ledger.SystemProgram}
		}
	}
	s.mux.Unlock()

	ec := &execution{sim: s, tx: tx, working: working}
	for i := range tx.Instructions {
		if err := ec.runInstruction(ctx, i, nil); err != nil {
			log.L(ctx).Warnf("transaction reverted at instruction %d: %s", i, err)
			return err
		}
	}

	s.mux.Lock()
	for k, a := range working {
		s.accounts[k] = a
	}
	s.mux.Unlock()
	if s.db != nil {
		committed := make([]*ledger.Account, 0, len(working))
		for _, a := range working {
			committed = append(committed, a)
		}
		if err := s.db.writeAccounts(ctx, committed); err != nil {
			return err
		}
	}
	log.L(ctx).Debugf("transaction committed (%d instructions, %d accounts)", len(tx.Instructions), len(working))
	return nil
}

// execution tracks one transaction's working state.
type execution struct {
	sim     *Simulator
	tx      *Transaction
	working map[solana.PublicKey]*ledger.Account
}

// runInstruction dispatches one instruction, either top-level (index into the
// transaction) or as an inner delegated call (ins != nil, index of caller).
func (ec *execution) runInstruction(ctx context.Context, index int, inner *innerCall) error {
	ins := &ec.tx.Instructions[index]
	if inner != nil {
		ins = inner.ins
	}
	program, ok := ec.sim.programs[ins.ProgramID]
	if !ok {
		return i18n.NewError(ctx, msgs.MsgSimUnknownProgram, ins.ProgramID)
	}
	accts := make([]*ledger.Account, len(ins.Accounts))
	before := make([]ledger.Account, len(ins.Accounts))
	for i, m := range ins.Accounts {
		a, ok := ec.working[m.Key]
		if !ok {
			// inner calls may reference accounts the outer tx never named
			return i18n.NewError(ctx, msgs.MsgSimMissingAccount, m.Key)
		}
		// The view shares the working copy's data buffer, so in-place writes
		// land directly; whole-field replacements are copied back below.
		view := *a
		view.IsWritable = m.IsWritable
		view.IsSigner = m.IsSigner || (inner != nil && m.Key == inner.signer)
		accts[i] = &view
		before[i] = view
	}
	call := &callContext{exec: ec, index: index, ins: ins, accounts: accts}
	err := program.Execute(ctx, call, ins.Data)
	// Write back only what this handler changed relative to its own pre-call
	// view. An inner delegated call may have committed newer values for the
	// same accounts while this handler ran, and the stale view must not
	// clobber them.
	for i, m := range ins.Accounts {
		w := ec.working[m.Key]
		if accts[i].Lamports != before[i].Lamports {
			w.Lamports = accts[i].Lamports
		}
		if accts[i].Owner != before[i].Owner {
			w.Owner = accts[i].Owner
		}
		if dataReplaced(before[i].Data, accts[i].Data) {
			w.Data = accts[i].Data
		}
	}
	return err
}

// dataReplaced reports whether a handler swapped in a different data slice,
// as opposed to mutating the shared backing array in place.
func dataReplaced(before, after []byte) bool {
	if len(before) != len(after) {
		return true
	}
	return len(after) > 0 && &before[0] != &after[0]
}

type innerCall struct {
	ins    *ledger.Instruction
	signer solana.PublicKey
}

type callContext struct {
	exec     *execution
	index    int
	ins      *ledger.Instruction
	accounts []*ledger.Account
}

func (c *callContext) ProgramID() solana.PublicKey {
	return c.ins.ProgramID
}

func (c *callContext) Accounts() []*ledger.Account {
	return c.accounts
}

func (c *callContext) CurrentIndex() int {
	return c.index
}

func (c *callContext) InstructionAt(ctx context.Context, index int) (*ledger.Instruction, error) {
	if index < 0 || index >= len(c.exec.tx.Instructions) {
		return nil, i18n.NewError(ctx, msgs.MsgSimInstructionIndex, index, len(c.exec.tx.Instructions))
	}
	ins := c.exec.tx.Instructions[index]
	ins.Data = append([]byte(nil), ins.Data...)
	return &ins, nil
}

func (c *callContext) InvokeSigned(ctx context.Context, ins ledger.Instruction, seeds [][]byte) error {
	derived, err := solana.CreateProgramAddress(seeds, c.ins.ProgramID)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgSimSignerEscalation, "<underivable>")
	}
	return c.exec.runInstruction(ctx, c.index, &innerCall{ins: &ins, signer: derived})
}

func (c *callContext) UnixTime() int64 {
	return c.exec.sim.now()
}
