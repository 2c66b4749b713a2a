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

// Package wire pins the byte-level contracts of the upgrade gate: the tagged
// request encoding, the exact layout of the off-chain signed authorization
// message, and the data format of the secp256k1 companion instruction. Field
// order in this package is signed by external keys, so it must never change.
package wire

import (
	"bytes"
	"context"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/types"
)

// Tag is the single discriminant byte that selects the operation.
type Tag uint8

const (
	TagInitialize         Tag = 0
	TagRotate             Tag = 1
	TagExecuteUpgrade     Tag = 2
	TagSetLoaderAuthority Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagInitialize:
		return "Initialize"
	case TagRotate:
		return "Rotate"
	case TagExecuteUpgrade:
		return "ExecuteUpgrade"
	case TagSetLoaderAuthority:
		return "SetLoaderAuthority"
	}
	return "Unknown"
}

// InitializeArgs creates the authority record for a managed program. The
// record account must be the program-derived address for Program.
type InitializeArgs struct {
	Program   solana.PublicKey
	Authority ethtypes.Address0xHex
}

// RotateArgs replaces the stored authority address. The rotation message
// embedding Nonce must be signed by the current authority, and the signature
// must have been verified by the secp256k1 instruction at PrecompileIndex
// earlier in the same transaction.
type RotateArgs struct {
	NewAuthority    ethtypes.Address0xHex
	Nonce           uint64
	Expiry          uint64
	PrecompileIndex uint8
}

// ExecuteUpgradeArgs swaps the managed program's executable for the staged
// buffer, authorized the same way as RotateArgs.
type ExecuteUpgradeArgs struct {
	Buffer          solana.PublicKey
	Nonce           uint64
	Expiry          uint64
	PrecompileIndex uint8
}

// SetLoaderAuthorityArgs hands the loader-side upgrade authority for the
// managed program to a new native account, ending this gate's control.
type SetLoaderAuthorityArgs struct {
	NewAuthority    solana.PublicKey
	Nonce           uint64
	Expiry          uint64
	PrecompileIndex uint8
}

// Instruction is the decoded form of one request: exactly one of the arg
// pointers is set, matching Tag.
type Instruction struct {
	Tag                Tag
	Initialize         *InitializeArgs
	Rotate             *RotateArgs
	ExecuteUpgrade     *ExecuteUpgradeArgs
	SetLoaderAuthority *SetLoaderAuthorityArgs
}

// DecodeInstruction parses the discriminant byte and the borsh argument
// record for that tag. Trailing bytes are rejected: the encoding is a fixed
// wire contract, not a prefix. Unknown tags are InvalidInstruction; anything
// wrong with the argument record is Deserialize.
func DecodeInstruction(ctx context.Context, data []byte) (*Instruction, error) {
	if len(data) == 0 {
		return nil, types.NewProgramError(types.ErrInvalidInstruction,
			i18n.NewError(ctx, msgs.MsgInstructionEmpty))
	}
	ins := &Instruction{Tag: Tag(data[0])}
	dec := bin.NewBorshDecoder(data[1:])
	var err error
	switch ins.Tag {
	case TagInitialize:
		ins.Initialize = &InitializeArgs{}
		err = dec.Decode(ins.Initialize)
	case TagRotate:
		ins.Rotate = &RotateArgs{}
		err = dec.Decode(ins.Rotate)
	case TagExecuteUpgrade:
		ins.ExecuteUpgrade = &ExecuteUpgradeArgs{}
		err = dec.Decode(ins.ExecuteUpgrade)
	case TagSetLoaderAuthority:
		ins.SetLoaderAuthority = &SetLoaderAuthorityArgs{}
		err = dec.Decode(ins.SetLoaderAuthority)
	default:
		return nil, types.NewProgramError(types.ErrInvalidInstruction,
			i18n.NewError(ctx, msgs.MsgInstructionUnknownTag, ins.Tag))
	}
	if err != nil {
		return nil, types.NewProgramError(types.ErrDeserialize,
			i18n.WrapError(ctx, err, msgs.MsgInstructionBadArgs, ins.Tag))
	}
	if remaining := dec.Remaining(); remaining > 0 {
		return nil, types.NewProgramError(types.ErrDeserialize,
			i18n.NewError(ctx, msgs.MsgInstructionTrailing, remaining))
	}
	return ins, nil
}

// EncodeInstruction is the inverse of DecodeInstruction, used by the off-chain
// signer tooling and tests.
func EncodeInstruction(tag Tag, args interface{}) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{byte(tag)})
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
