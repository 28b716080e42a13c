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

// Package taxid normalizes and formats Brazilian tax identifiers (CNPJ/CPF).
// It is purely textual: no check-digit validation is performed, and input
// that does not look like a tax ID passes through unchanged so that upstream
// formatting drift never blocks a sync.
package taxid

import "strings"

// NormalizeKey strips the punctuation used in formatted tax IDs, leaving the
// digits-only fallback lookup key. It is idempotent.
func NormalizeKey(raw string) string {
	replacer := strings.NewReplacer(".", "", "-", "", "/", "")
	return strings.TrimSpace(replacer.Replace(raw))
}

// Format applies the standard punctuation template for a digit string:
// 14 digits format as a CNPJ (XX.XXX.XXX/XXXX-XX), 11 digits as a CPF
// (XXX.XXX.XXX-XX). Any other length is returned unchanged.
func Format(digits string) string {
	switch len(digits) {
	case 14:
		return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
	case 11:
		return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
	default:
		return digits
	}
}
