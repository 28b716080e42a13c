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

package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ContentHash computes a stable digest over a decoded record. The record is
// canonicalized before hashing: encoding/json marshals map keys in sorted
// order at every nesting level, so two records with the same field values
// hash identically regardless of the key order they arrived in. The digest is
// used for change detection only, never for security.
func ContentHash(record map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
