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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestWalletFromMnemonicDeterministic(t *testing.T) {
	ctx := context.Background()

	w1, err := NewWallet(ctx, []byte(testMnemonic))
	require.NoError(t, err)
	w2, err := NewWallet(ctx, []byte(testMnemonic))
	require.NoError(t, err)

	a1, err := w1.Authorizer(ctx, 0)
	require.NoError(t, err)
	a2, err := w2.Authorizer(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, a1.Address(), a2.Address())

	// the index selects a different key
	a3, err := w1.Authorizer(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a1.Address(), a3.Address())
}

func TestWalletFromRawSeed(t *testing.T) {
	ctx := context.Background()
	seed := make([]byte, 32)
	seed[0] = 0x01

	w, err := NewWallet(ctx, seed)
	require.NoError(t, err)
	a, err := w.Authorizer(ctx, 0)
	require.NoError(t, err)

	// the default-path derivation and the explicit path agree
	explicit, err := w.AuthorizerAtPath(ctx, DefaultDerivationPath+"/0")
	require.NoError(t, err)
	assert.Equal(t, a.Address(), explicit.Address())
}

func TestWalletBadMnemonic(t *testing.T) {
	_, err := NewWallet(context.Background(), []byte("not a mnemonic"))
	assert.Regexp(t, "UG010500", err)
}

func TestWalletBadDerivationPath(t *testing.T) {
	ctx := context.Background()
	w, err := NewWallet(ctx, make([]byte, 32))
	require.NoError(t, err)

	_, err = w.AuthorizerAtPath(ctx, "m/44'/banana")
	assert.Regexp(t, "UG010501", err)

	_, err = w.AuthorizerAtPath(ctx, "m/4294967295")
	assert.Regexp(t, "UG010501", err)
}
