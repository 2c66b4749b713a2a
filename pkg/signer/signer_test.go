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
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/state"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) (k solana.PublicKey) {
	for i := range k {
		k[i] = fill
	}
	return k
}

func TestNewAuthorizerBadKeyLength(t *testing.T) {
	_, err := NewAuthorizer(context.Background(), []byte{0x01})
	assert.Regexp(t, "UG010502", err)

	_, err = NewAuthorizer(context.Background(), make([]byte, 33))
	assert.Regexp(t, "UG010502", err)

	_, err = NewAuthorizer(context.Background(), nil)
	assert.Regexp(t, "UG010502", err)
}

func TestAuthorizeRecoversToAddress(t *testing.T) {
	ctx := context.Background()
	auth, err := GenerateAuthorizer()
	require.NoError(t, err)

	message := []byte("authorize exactly this")
	authorization, err := auth.Authorize(ctx, message)
	require.NoError(t, err)
	assert.Equal(t, auth.Address(), authorization.Address)
	assert.Equal(t, message, authorization.Message)
	assert.LessOrEqual(t, authorization.RecoveryID, uint8(1))

	// the packaged signature recovers to the authority address
	sig := &secp256k1.SignatureData{
		R: new(big.Int).SetBytes(authorization.Signature[0:32]),
		S: new(big.Int).SetBytes(authorization.Signature[32:64]),
		V: big.NewInt(int64(authorization.RecoveryID) + 27),
	}
	recovered, err := sig.RecoverDirect(message, 0)
	require.NoError(t, err)
	assert.Equal(t, auth.Address(), *recovered)
}

func TestCompanionInstructionRoundTrip(t *testing.T) {
	ctx := context.Background()
	auth, err := GenerateAuthorizer()
	require.NoError(t, err)

	authorization, err := auth.Authorize(ctx, []byte("message"))
	require.NoError(t, err)

	ins := authorization.CompanionInstruction(4)
	assert.Equal(t, ledger.Secp256k1Program, ins.ProgramID)

	payload, err := wire.ParseSecp256k1InstructionData(ctx, ins.Data)
	require.NoError(t, err)
	assert.Equal(t, auth.Address(), payload.Address)
	assert.Equal(t, []byte("message"), payload.Message)
	assert.Equal(t, uint8(4), payload.SignatureIx)
}

func TestSignUpgradeRequestShape(t *testing.T) {
	ctx := context.Background()
	auth, err := GenerateAuthorizer()
	require.NoError(t, err)

	gate, managed := testKey(0x01), testKey(0x02)
	buffer, spill := testKey(0x03), testKey(0x04)
	instrs, err := auth.SignUpgrade(ctx, gate, managed, buffer, spill, 7, 0, 0)
	require.NoError(t, err)
	require.Len(t, instrs, 2)

	// companion first, carrying the upgrade message
	payload, err := wire.ParseSecp256k1InstructionData(ctx, instrs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, wire.UpgradeMessage(managed, buffer, 7, 0), payload.Message)

	// then the gate request, record account first, buffer in the loader slot
	record, _, err := state.DeriveRecordAddress(gate, managed)
	require.NoError(t, err)
	assert.Equal(t, gate, instrs[1].ProgramID)
	require.Len(t, instrs[1].Accounts, 7)
	assert.Equal(t, record, instrs[1].Accounts[0].Key)
	assert.Equal(t, managed, instrs[1].Accounts[2].Key)
	assert.Equal(t, buffer, instrs[1].Accounts[3].Key)
	assert.Equal(t, spill, instrs[1].Accounts[4].Key)

	decoded, err := wire.DecodeInstruction(ctx, instrs[1].Data)
	require.NoError(t, err)
	require.Equal(t, wire.TagExecuteUpgrade, decoded.Tag)
	assert.Equal(t, buffer, decoded.ExecuteUpgrade.Buffer)
	assert.Equal(t, uint64(7), decoded.ExecuteUpgrade.Nonce)
}

func TestSignRotationRequestShape(t *testing.T) {
	ctx := context.Background()
	auth, err := GenerateAuthorizer()
	require.NoError(t, err)
	successor, err := GenerateAuthorizer()
	require.NoError(t, err)

	gate, managed := testKey(0x01), testKey(0x02)
	instrs, err := auth.SignRotation(ctx, gate, managed, successor.Address(), 3, 500, 1)
	require.NoError(t, err)
	require.Len(t, instrs, 2)

	payload, err := wire.ParseSecp256k1InstructionData(ctx, instrs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, wire.RotationMessage(managed, successor.Address(), 3, 500), payload.Message)
	assert.Equal(t, uint8(1), payload.MessageIx)

	decoded, err := wire.DecodeInstruction(ctx, instrs[1].Data)
	require.NoError(t, err)
	require.Equal(t, wire.TagRotate, decoded.Tag)
	assert.Equal(t, successor.Address(), decoded.Rotate.NewAuthority)
	assert.Equal(t, uint8(1), decoded.Rotate.PrecompileIndex)
}

func TestSignLoaderAuthorityRequestShape(t *testing.T) {
	ctx := context.Background()
	auth, err := GenerateAuthorizer()
	require.NoError(t, err)

	gate, managed, operator := testKey(0x01), testKey(0x02), testKey(0x05)
	instrs, err := auth.SignLoaderAuthority(ctx, gate, managed, operator, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, instrs, 2)
	require.Len(t, instrs[1].Accounts, 3)
	assert.Equal(t, operator, instrs[1].Accounts[2].Key)

	decoded, err := wire.DecodeInstruction(ctx, instrs[1].Data)
	require.NoError(t, err)
	require.Equal(t, wire.TagSetLoaderAuthority, decoded.Tag)
	assert.Equal(t, operator, decoded.SetLoaderAuthority.NewAuthority)
}

func TestBuildInitialize(t *testing.T) {
	auth, err := GenerateAuthorizer()
	require.NoError(t, err)

	gate, managed := testKey(0x01), testKey(0x02)
	ins, err := BuildInitialize(gate, managed, auth.Address())
	require.NoError(t, err)

	record, _, err := state.DeriveRecordAddress(gate, managed)
	require.NoError(t, err)
	require.Len(t, ins.Accounts, 1)
	assert.Equal(t, record, ins.Accounts[0].Key)

	decoded, err := wire.DecodeInstruction(context.Background(), ins.Data)
	require.NoError(t, err)
	require.Equal(t, wire.TagInitialize, decoded.Tag)
	assert.Equal(t, managed, decoded.Initialize.Program)
	assert.Equal(t, auth.Address(), decoded.Initialize.Authority)
}
