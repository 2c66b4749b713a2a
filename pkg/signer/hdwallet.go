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
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is the ethereum convention the authority tooling
// derives keys under when no explicit path is given.
const DefaultDerivationPath = "m/44'/60'/0'/0"

// Wallet derives authority keys from a BIP-32 chain rooted in either a raw
// 32 byte seed or a BIP-39 mnemonic.
type Wallet struct {
	root *hdkeychain.ExtendedKey
}

func NewWallet(ctx context.Context, seedOrMnemonic []byte) (*Wallet, error) {
	seed := seedOrMnemonic
	if len(seed) != 32 {
		var err error
		seed, err = bip39.NewSeedWithErrorChecking(strings.TrimSpace(string(seedOrMnemonic)), "")
		if err != nil {
			return nil, i18n.NewError(ctx, msgs.MsgSignerSeedInvalid)
		}
	}
	root, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignerSeedInvalid)
	}
	return &Wallet{root: root}, nil
}

// Authorizer derives the key at DefaultDerivationPath/index.
func (w *Wallet) Authorizer(ctx context.Context, index uint32) (*Authorizer, error) {
	return w.AuthorizerAtPath(ctx, DefaultDerivationPath+"/"+strconv.FormatUint(uint64(index), 10))
}

// AuthorizerAtPath derives the key at an explicit BIP-44 style path, e.g.
// "m/44'/60'/0'/0/2". Friendly spaces around segments are tolerated.
func (w *Wallet) AuthorizerAtPath(ctx context.Context, path string) (*Authorizer, error) {
	key := w.root
	for _, segment := range strings.Split(path, "/") {
		segment = strings.TrimSpace(segment)
		if segment == "m" || segment == "" {
			continue
		}
		numStr, hardened := strings.CutSuffix(segment, "'")
		n, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil || n >= hdkeychain.HardenedKeyStart {
			return nil, i18n.NewError(ctx, msgs.MsgSignerDerivationBad, segment)
		}
		derivation := uint32(n)
		if hardened {
			derivation += hdkeychain.HardenedKeyStart
		}
		if key, err = key.Derive(derivation); err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgSignerDerivationBad, segment)
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignerKeyInvalid)
	}
	return NewAuthorizer(ctx, priv.Serialize())
}
