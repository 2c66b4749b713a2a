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

package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable numeric discriminant surfaced to the ledger caller
// when the gate program rejects a transaction. The host reverts every state
// change attempted in the transaction, so a kind is the only output of a
// failed request.
type ErrorKind uint32

const (
	ErrInvalidInstruction ErrorKind = iota
	ErrDeserialize
	ErrAlreadyInitialized
	ErrMissingPrecompile
	ErrMessageMismatch
	ErrUnauthorized
	ErrNonceMismatch
	ErrInvocationFailed
	ErrAccountMismatch
)

var kindNames = map[ErrorKind]string{
	ErrInvalidInstruction: "InvalidInstruction",
	ErrDeserialize:        "Deserialize",
	ErrAlreadyInitialized: "AlreadyInitialized",
	ErrMissingPrecompile:  "MissingPrecompile",
	ErrMessageMismatch:    "MessageMismatch",
	ErrUnauthorized:       "Unauthorized",
	ErrNonceMismatch:      "NonceMismatch",
	ErrInvocationFailed:   "InvocationFailed",
	ErrAccountMismatch:    "AccountMismatch",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", uint32(k))
}

// ProgramError pairs one ErrorKind with the descriptive (i18n coded) error
// that produced it. The kind is the wire contract; the wrapped error is for
// logs and operators only.
type ProgramError struct {
	Kind ErrorKind
	err  error
}

func NewProgramError(kind ErrorKind, err error) *ProgramError {
	return &ProgramError{Kind: kind, err: err}
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.err)
}

func (e *ProgramError) Unwrap() error {
	return e.err
}

// KindOf extracts the discriminant from any error returned by the processor.
// Errors raised outside the taxonomy (host errors propagated unmapped) report
// ok=false and must still revert the transaction.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
