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

package msgs

import (
	"fmt"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const upgradeGatePrefix = "UG01"

var registered = false
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	if !registered {
		i18n.RegisterPrefix(upgradeGatePrefix, "Solana Upgrade Gate")
		registered = true
	}
	if !strings.HasPrefix(key, upgradeGatePrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", upgradeGatePrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (

	// Instruction routing UG0100XX
	MsgInstructionEmpty      = ffe("UG010000", "Instruction data is empty")
	MsgInstructionUnknownTag = ffe("UG010001", "Unknown instruction tag %d")
	MsgInstructionBadArgs    = ffe("UG010002", "Invalid argument payload for instruction tag %d")
	MsgInstructionTrailing   = ffe("UG010003", "Unexpected %d trailing bytes after instruction arguments")
	MsgAccountsTooFew        = ffe("UG010004", "Instruction requires %d accounts, got %d")

	// Authority state UG0101XX
	MsgStateBadLength          = ffe("UG010100", "Authority account data length %d is not the expected %d")
	MsgStateBadVersion         = ffe("UG010101", "Unsupported authority account version %d")
	MsgStateNotInitialized     = ffe("UG010102", "Authority account %s has not been initialized")
	MsgStateAlreadyInitialized = ffe("UG010103", "Authority account for program %s is already initialized")
	MsgStateAuthorityZero      = ffe("UG010104", "Authority address must not be all zeroes")
	MsgStateWrongAccount       = ffe("UG010105", "Account %s is not the derived authority record for program %s")
	MsgStateNonceMismatch      = ffe("UG010106", "Request nonce %d does not match the stored nonce %d")
	MsgStateNonceOverflow      = ffe("UG010107", "Nonce overflow")

	// Signature verification UG0102XX
	MsgPrecompileIndexOrder  = ffe("UG010200", "Companion verification instruction index %d must precede the consuming instruction index %d")
	MsgPrecompileNotFound    = ffe("UG010201", "Instruction at index %d is %s, not the secp256k1 verification program")
	MsgPrecompileShortData   = ffe("UG010202", "secp256k1 instruction data too short: %d bytes")
	MsgPrecompileCount       = ffe("UG010203", "secp256k1 instruction carries %d signatures, exactly 1 required")
	MsgPrecompileOffsets     = ffe("UG010204", "secp256k1 offsets reference data outside the instruction")
	MsgPrecompileCrossRef    = ffe("UG010205", "secp256k1 offsets reference instruction %d, expected %d")
	MsgVerifyMessageMismatch = ffe("UG010206", "Verified message hash %s does not match the expected message hash %s")
	MsgVerifyWrongSigner     = ffe("UG010207", "Recovered signer %s is not the stored authority %s")
	MsgVerifyMessageExpired  = ffe("UG010208", "Authorization expired at %d, ledger time is %d")

	// Loader invocation UG0103XX
	MsgInvokeUpgradeFailed = ffe("UG010300", "Loader upgrade invocation failed for program %s")
	MsgInvokeSetAuthFailed = ffe("UG010301", "Loader set-authority invocation failed for program %s")
	MsgInvokeDeriveFailed  = ffe("UG010302", "Unable to derive signing address for program %s")

	// Ledger simulator UG0104XX
	MsgSimUnknownProgram   = ffe("UG010400", "No handler registered for program %s")
	MsgSimMissingAccount   = ffe("UG010401", "Account %s is not present in the transaction")
	MsgSimInstructionIndex = ffe("UG010402", "Instruction index %d out of range (%d instructions)")
	MsgSimSignerEscalation = ffe("UG010403", "Derived address %s does not grant signing for this invocation")
	MsgSimPrecompileReject = ffe("UG010404", "secp256k1 signature verification failed")
	MsgSimLoaderReject     = ffe("UG010405", "Loader rejected the request: %s")
	MsgSimPersistenceInit  = ffe("UG010406", "Ledger database init failed")
	MsgSimPersistenceWrite = ffe("UG010407", "Ledger database write failed")
	MsgSimPersistenceLoad  = ffe("UG010408", "Ledger database load failed")

	// Off-chain signer UG0105XX
	MsgSignerSeedInvalid   = ffe("UG010500", "Seed must be a 32 byte value or a BIP-39 mnemonic")
	MsgSignerDerivationBad = ffe("UG010501", "Invalid BIP-44 derivation segment '%s'")
	MsgSignerKeyInvalid    = ffe("UG010502", "Invalid private key")
	MsgSignerSignFailed    = ffe("UG010503", "Signing failed")
)
