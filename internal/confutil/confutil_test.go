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

package confutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInt(t *testing.T) {
	assert.Equal(t, 12345, Int(nil, 12345))
	assert.Equal(t, 23456, Int(P(23456), 12345))
}

func TestIntMin(t *testing.T) {
	assert.Equal(t, 12345, IntMin(nil, 1, 12345))
	assert.Equal(t, 12345, IntMin(P(0), 1, 12345))
	assert.Equal(t, 23456, IntMin(P(23456), 1, 12345))
}

func TestBool(t *testing.T) {
	assert.True(t, Bool(nil, true))
	assert.False(t, Bool(P(false), true))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, Duration(nil, 10*time.Second))
	assert.Equal(t, 10*time.Second, Duration(P("wrong"), 10*time.Second))
	assert.Equal(t, 500*time.Millisecond, Duration(P("500ms"), 10*time.Second))
}
