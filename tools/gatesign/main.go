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

// gatesign is the operator tool for the upgrade gate. It derives (or loads)
// the secp256k1 authority key, signs the requested privileged operation, and
// prints the instruction pair to submit - the secp256k1 companion followed by
// the gate instruction. The nonce and expiry are taken from the command line:
// read the current nonce from the on-ledger authority record before signing.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/signer"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/state"
)

var (
	op           = flag.String("op", "", "operation: address, initialize, rotate, upgrade, set-authority")
	gateProgram  = flag.String("gate", "", "base58 address of the gate program")
	program      = flag.String("program", "", "base58 address of the managed program")
	buffer       = flag.String("buffer", "", "base58 address of the staged buffer (upgrade)")
	spill        = flag.String("spill", "", "base58 address of the spill account (upgrade)")
	newAuthority = flag.String("new-authority", "", "new authority: 0x address for rotate/initialize, base58 for set-authority")
	nonce        = flag.Uint64("nonce", 0, "current nonce stored in the authority record")
	expiry       = flag.Uint64("expiry", 0, "unix expiry for the signed request, 0 for none")
	index        = flag.Uint("index", 0, "transaction position of the secp256k1 companion instruction")
	keyHex       = flag.String("key", "", "hex secp256k1 private key (overrides -seed-file)")
	seedFile     = flag.String("seed-file", "", "file holding a BIP-39 mnemonic or 32 byte hex seed")
	keyPath      = flag.String("path", "", "BIP-44 derivation path, default "+signer.DefaultDerivationPath+"/<key-index>")
	keyIndex     = flag.Uint("key-index", 0, "key index under the default derivation path")
)

type printedInstruction struct {
	ProgramID string   `json:"programId"`
	Accounts  []string `json:"accounts"`
	Data      string   `json:"dataBase64"`
}

func main() {
	ctx := context.Background()
	flag.Parse()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gatesign: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	auth, err := loadAuthorizer(ctx)
	if err != nil {
		return err
	}

	switch *op {
	case "address":
		fmt.Printf("authority: %s\n", auth.Address())
		return nil
	case "initialize":
		gate, managed, err := gateAndProgram()
		if err != nil {
			return err
		}
		to := auth.Address()
		if *newAuthority != "" {
			if to, err = parseEthAddress(*newAuthority); err != nil {
				return err
			}
		}
		ins, err := signer.BuildInitialize(gate, managed, to)
		if err != nil {
			return err
		}
		return printRequest(gate, managed, []ledger.Instruction{*ins})
	case "rotate":
		gate, managed, err := gateAndProgram()
		if err != nil {
			return err
		}
		to, err := parseEthAddress(*newAuthority)
		if err != nil {
			return err
		}
		ins, err := auth.SignRotation(ctx, gate, managed, to, *nonce, *expiry, uint8(*index))
		if err != nil {
			return err
		}
		return printRequest(gate, managed, ins)
	case "upgrade":
		gate, managed, err := gateAndProgram()
		if err != nil {
			return err
		}
		bufferKey, err := parseBase58("-buffer", *buffer)
		if err != nil {
			return err
		}
		spillKey, err := parseBase58("-spill", *spill)
		if err != nil {
			return err
		}
		ins, err := auth.SignUpgrade(ctx, gate, managed, bufferKey, spillKey, *nonce, *expiry, uint8(*index))
		if err != nil {
			return err
		}
		return printRequest(gate, managed, ins)
	case "set-authority":
		gate, managed, err := gateAndProgram()
		if err != nil {
			return err
		}
		to, err := parseBase58("-new-authority", *newAuthority)
		if err != nil {
			return err
		}
		ins, err := auth.SignLoaderAuthority(ctx, gate, managed, to, *nonce, *expiry, uint8(*index))
		if err != nil {
			return err
		}
		return printRequest(gate, managed, ins)
	default:
		return fmt.Errorf("unknown -op %q", *op)
	}
}

func loadAuthorizer(ctx context.Context) (*signer.Authorizer, error) {
	if *keyHex != "" {
		key, err := hex.DecodeString(strings.TrimPrefix(*keyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("bad -key: %s", err)
		}
		return signer.NewAuthorizer(ctx, key)
	}
	if *seedFile == "" {
		return nil, fmt.Errorf("one of -key or -seed-file is required")
	}
	raw, err := os.ReadFile(*seedFile)
	if err != nil {
		return nil, err
	}
	if seed, err := hex.DecodeString(strings.TrimSpace(string(raw))); err == nil && len(seed) == 32 {
		raw = seed
	}
	wallet, err := signer.NewWallet(ctx, raw)
	if err != nil {
		return nil, err
	}
	if *keyPath != "" {
		return wallet.AuthorizerAtPath(ctx, *keyPath)
	}
	return wallet.Authorizer(ctx, uint32(*keyIndex))
}

func gateAndProgram() (gate, managed solana.PublicKey, err error) {
	if gate, err = parseBase58("-gate", *gateProgram); err != nil {
		return gate, managed, err
	}
	managed, err = parseBase58("-program", *program)
	return gate, managed, err
}

func parseBase58(flagName, v string) (solana.PublicKey, error) {
	if v == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", flagName)
	}
	key, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("bad %s: %s", flagName, err)
	}
	return key, nil
}

func parseEthAddress(v string) (ethtypes.Address0xHex, error) {
	var addr ethtypes.Address0xHex
	if v == "" {
		return addr, fmt.Errorf("-new-authority is required")
	}
	parsed, err := ethtypes.NewAddress(v)
	if err != nil {
		return addr, fmt.Errorf("bad -new-authority: %s", err)
	}
	return *parsed, nil
}

func printRequest(gate, managed solana.PublicKey, ins []ledger.Instruction) error {
	record, bump, err := state.DeriveRecordAddress(gate, managed)
	if err != nil {
		return err
	}
	fmt.Printf("authority record: %s (bump %d)\n", record, bump)
	for i := range ins {
		printed := printedInstruction{
			ProgramID: ins[i].ProgramID.String(),
			Data:      base64.StdEncoding.EncodeToString(ins[i].Data),
		}
		for _, meta := range ins[i].Accounts {
			flags := ""
			if meta.IsWritable {
				flags = " (writable)"
			}
			if meta.IsSigner {
				flags += " (signer)"
			}
			printed.Accounts = append(printed.Accounts, meta.Key.String()+flags)
		}
		out, err := json.MarshalIndent(&printed, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("instruction[%d]:\n%s\n", i, out)
	}
	return nil
}
