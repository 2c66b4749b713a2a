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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/kaleido-io/solana-upgrade-gate/internal/confutil"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) (k solana.PublicKey) {
	for i := range k {
		k[i] = fill
	}
	return k
}

// setDataProgram writes its instruction data into its first account.
var setDataProgram = ProgramFunc(func(ctx context.Context, call ledger.CallContext, data []byte) error {
	acct := call.Accounts()[0]
	acct.Data = append([]byte(nil), data...)
	acct.Lamports += 100
	return nil
})

func writeTx(program, target solana.PublicKey, data []byte) *Transaction {
	return &Transaction{Instructions: []ledger.Instruction{{
		ProgramID: program,
		Accounts:  []ledger.AccountMeta{{Key: target, IsWritable: true}},
		Data:      data,
	}}}
}

func TestExecuteCommitsMutations(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	programID, target := testKey(0x01), testKey(0x02)
	sim.Register(programID, setDataProgram)

	require.NoError(t, sim.Execute(ctx, writeTx(programID, target, []byte("hello"))))

	acct, ok := sim.GetAccount(target)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), acct.Data)
	assert.Equal(t, uint64(100), acct.Lamports)
}

func TestExecuteUnknownProgram(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	err = sim.Execute(ctx, writeTx(testKey(0x01), testKey(0x02), nil))
	assert.Regexp(t, "UG010400", err)
}

func TestExecuteRevertsWholeTransaction(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	programID, target := testKey(0x01), testKey(0x02)
	sim.Register(programID, setDataProgram)
	sim.SetAccount(&ledger.Account{Key: target, Owner: ledger.SystemProgram, Data: []byte("before")})

	failing := testKey(0x03)
	sim.Register(failing, ProgramFunc(func(ctx context.Context, call ledger.CallContext, data []byte) error {
		return fmt.Errorf("pop")
	}))

	// the first instruction's mutation must not survive the second's failure
	tx := writeTx(programID, target, []byte("after"))
	tx.Instructions = append(tx.Instructions, ledger.Instruction{ProgramID: failing})
	require.Regexp(t, "pop", sim.Execute(ctx, tx))

	acct, ok := sim.GetAccount(target)
	require.True(t, ok)
	assert.Equal(t, []byte("before"), acct.Data)
}

func TestInvokeSignedCommitsLamportMoves(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	callerID, moverID := testKey(0x71), testKey(0x72)
	from, to := testKey(0x73), testKey(0x74)
	sim.SetAccount(&ledger.Account{Key: from, Owner: ledger.SystemProgram, Lamports: 100})

	// find a bump that derives off-curve under the caller program
	var seeds [][]byte
	for b := 0; b < 256; b++ {
		try := [][]byte{[]byte("mover"), {byte(b)}}
		if _, err := solana.CreateProgramAddress(try, callerID); err == nil {
			seeds = try
			break
		}
	}
	require.NotNil(t, seeds)

	sim.Register(moverID, ProgramFunc(func(ctx context.Context, call ledger.CallContext, data []byte) error {
		accts := call.Accounts()
		accts[0].Lamports -= 40
		accts[1].Lamports += 40
		return nil
	}))
	// the caller makes no account changes of its own after the delegated
	// call, so the inner movement is what must survive the commit
	sim.Register(callerID, ProgramFunc(func(ctx context.Context, call ledger.CallContext, data []byte) error {
		return call.InvokeSigned(ctx, ledger.Instruction{
			ProgramID: moverID,
			Accounts: []ledger.AccountMeta{
				{Key: from, IsWritable: true},
				{Key: to, IsWritable: true},
			},
		}, seeds)
	}))

	require.NoError(t, sim.Execute(ctx, &Transaction{Instructions: []ledger.Instruction{{
		ProgramID: callerID,
		Accounts: []ledger.AccountMeta{
			{Key: from, IsWritable: true},
			{Key: to, IsWritable: true},
		},
	}}}))

	fromAcct, ok := sim.GetAccount(from)
	require.True(t, ok)
	assert.Equal(t, uint64(60), fromAcct.Lamports)
	toAcct, ok := sim.GetAccount(to)
	require.True(t, ok)
	assert.Equal(t, uint64(40), toAcct.Lamports)
}

func TestExecutePersistsThroughDatabase(t *testing.T) {
	ctx := context.Background()
	conf := &Config{Database: DatabaseConfig{
		URI:             filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:    confutil.P(1),
		MaxIdleConns:    confutil.P(1),
		ConnMaxIdleTime: confutil.P("1m"),
		ConnMaxLifetime: confutil.P("1h"),
	}}

	sim1, err := New(ctx, conf)
	require.NoError(t, err)
	programID, target := testKey(0x01), testKey(0x02)
	sim1.Register(programID, setDataProgram)
	require.NoError(t, sim1.Execute(ctx, writeTx(programID, target, []byte("durable"))))

	// a fresh simulator over the same database sees the committed account
	sim2, err := New(ctx, conf)
	require.NoError(t, err)
	acct, ok := sim2.GetAccount(target)
	require.True(t, ok)
	assert.Equal(t, []byte("durable"), acct.Data)
	assert.Equal(t, uint64(100), acct.Lamports)
}

func TestDatabaseBadURI(t *testing.T) {
	_, err := New(context.Background(), &Config{Database: DatabaseConfig{
		URI: filepath.Join(t.TempDir(), "no", "such", "dir", "ledger.db"),
	}})
	assert.Regexp(t, "UG010406", err)
}

func TestPrecompileVerifiesSignature(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	auth, err := signer.GenerateAuthorizer()
	require.NoError(t, err)
	authorization, err := auth.Authorize(ctx, []byte("approve this"))
	require.NoError(t, err)

	good := authorization.CompanionInstruction(0)
	require.NoError(t, sim.Execute(ctx, &Transaction{Instructions: []ledger.Instruction{good}}))

	// one corrupted signature byte fails the whole transaction
	bad := authorization.CompanionInstruction(0)
	bad.Data = append([]byte(nil), bad.Data...)
	bad.Data[40] ^= 0x01
	err = sim.Execute(ctx, &Transaction{Instructions: []ledger.Instruction{bad}})
	assert.Regexp(t, "UG010404", err)
}

func loaderUpgradeTx(authority solana.PublicKey, programData, buffer *ledger.Account) *Transaction {
	return &Transaction{Instructions: []ledger.Instruction{{
		ProgramID: ledger.BPFLoaderUpgradeable,
		Accounts: []ledger.AccountMeta{
			{Key: programData.Key, IsWritable: true},
			{Key: testKey(0xA2), IsWritable: true},
			{Key: buffer.Key, IsWritable: true},
			{Key: testKey(0xA4), IsWritable: true},
			{Key: ledger.SysVarRent},
			{Key: ledger.SysVarClock},
			{Key: authority, IsSigner: true},
		},
		Data: []byte{3, 0, 0, 0},
	}}}
}

func TestLoaderRejectsWrongBufferAuthority(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	authority := testKey(0xB1)
	programData := NewProgramDataAccount(testKey(0xA1), authority, 64)
	buffer := NewBufferAccount(testKey(0xA3), testKey(0xB2), 0, []byte("code"))
	sim.SetAccount(programData)
	sim.SetAccount(buffer)

	err = sim.Execute(ctx, loaderUpgradeTx(authority, programData, buffer))
	assert.Regexp(t, "buffer authority mismatch", err)
}

func TestLoaderRejectsUnsignedAuthority(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	authority := testKey(0xB1)
	programData := NewProgramDataAccount(testKey(0xA1), authority, 64)
	buffer := NewBufferAccount(testKey(0xA3), authority, 0, []byte("code"))
	sim.SetAccount(programData)
	sim.SetAccount(buffer)

	tx := loaderUpgradeTx(authority, programData, buffer)
	tx.Instructions[0].Accounts[6].IsSigner = false
	err = sim.Execute(ctx, tx)
	assert.Regexp(t, "did not sign", err)
}

func TestLoaderRejectsUnknownInstruction(t *testing.T) {
	ctx := context.Background()
	sim, err := New(ctx, &Config{})
	require.NoError(t, err)

	err = sim.Execute(ctx, &Transaction{Instructions: []ledger.Instruction{{
		ProgramID: ledger.BPFLoaderUpgradeable,
		Data:      []byte{9, 0, 0, 0},
	}}})
	assert.Regexp(t, "UG010405", err)
}
