/*
Copyright 2025 Contaops Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package taxid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.345.678/0001-95", "12345678000195"},
		{"123.456.789-09", "12345678909"},
		{"  12.345.678/0001-95  ", "12345678000195"},
		{"12345678000195", "12345678000195"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in))
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	inputs := []string{"12.345.678/0001-95", "123.456.789-09", "abc", ""}
	for _, in := range inputs {
		once := NormalizeKey(in)
		assert.Equal(t, once, NormalizeKey(once))
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678/0001-95", Format("12345678000195"))
	assert.Equal(t, "123.456.789-09", Format("12345678909"))

	// Anything that is not 11 or 14 digits passes through untouched.
	assert.Equal(t, "123", Format("123"))
	assert.Equal(t, "", Format(""))
	assert.Equal(t, "123456789012345", Format("123456789012345"))
}

func TestFormat_RoundTrip(t *testing.T) {
	digits := "12345678000195"
	formatted := Format(digits)
	assert.Equal(t, formatted, Format(NormalizeKey(formatted)))
}
