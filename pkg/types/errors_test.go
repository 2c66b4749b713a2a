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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramErrorCarriesKind(t *testing.T) {
	cause := errors.New("pop")
	err := NewProgramError(ErrUnauthorized, cause)
	assert.Equal(t, "Unauthorized: pop", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrUnauthorized, kind)

	// through additional wrapping too
	kind, ok = KindOf(fmt.Errorf("outer: %w", err))
	require.True(t, ok)
	assert.Equal(t, ErrUnauthorized, kind)
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("pop"))
	assert.False(t, ok)
}

func TestErrorKindStrings(t *testing.T) {
	assert.Equal(t, "InvalidInstruction", ErrInvalidInstruction.String())
	assert.Equal(t, "NonceMismatch", ErrNonceMismatch.String())
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())
}
