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
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/wire"
)

// secp256k1Verifier models the native verification program. It executes at
// its own transaction position, before any instruction that consumes its
// result, and really performs the recovery: a transaction carrying a
// signature that does not recover to the claimed address never reaches the
// gate program at all.
type secp256k1Verifier struct{}

func (v *secp256k1Verifier) Execute(ctx context.Context, call ledger.CallContext, data []byte) error {
	payload, err := wire.ParseSecp256k1InstructionData(ctx, data)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgSimPrecompileReject)
	}
	sig := &secp256k1.SignatureData{
		R: new(big.Int).SetBytes(payload.Signature[0:32]),
		S: new(big.Int).SetBytes(payload.Signature[32:64]),
		V: big.NewInt(int64(payload.RecoveryID) + 27),
	}
	addr, err := sig.RecoverDirect(payload.Message, 0)
	if err != nil || *addr != payload.Address {
		return i18n.NewError(ctx, msgs.MsgSimPrecompileReject)
	}
	log.L(ctx).Debugf("secp256k1 verification passed for %s", payload.Address)
	return nil
}
