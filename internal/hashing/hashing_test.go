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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_Deterministic(t *testing.T) {
	record := map[string]interface{}{
		"cnpj":         "12345678000195",
		"razao_social": "ACME CONSULTORIA LTDA",
		"regime":       "simples_nacional",
	}

	first, err := ContentHash(record)
	assert.NoError(t, err)
	second, err := ContentHash(record)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestContentHash_KeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{
		"cnpj": "12345678000195",
		"nome": "ACME",
		"endereco": map[string]interface{}{
			"cidade": "Sao Paulo",
			"uf":     "SP",
		},
	}
	b := map[string]interface{}{
		"endereco": map[string]interface{}{
			"uf":     "SP",
			"cidade": "Sao Paulo",
		},
		"nome": "ACME",
		"cnpj": "12345678000195",
	}

	hashA, err := ContentHash(a)
	assert.NoError(t, err)
	hashB, err := ContentHash(b)
	assert.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestContentHash_SensitiveToValueChanges(t *testing.T) {
	base := map[string]interface{}{
		"cnpj":   "12345678000195",
		"nome":   "ACME",
		"regime": "simples_nacional",
	}

	baseHash, err := ContentHash(base)
	assert.NoError(t, err)

	mutations := []map[string]interface{}{
		{"cnpj": "12345678000196", "nome": "ACME", "regime": "simples_nacional"},
		{"cnpj": "12345678000195", "nome": "ACME SA", "regime": "simples_nacional"},
		{"cnpj": "12345678000195", "nome": "ACME", "regime": "lucro_presumido"},
		{"cnpj": "12345678000195", "nome": "ACME"},
	}

	for _, mutated := range mutations {
		hash, err := ContentHash(mutated)
		assert.NoError(t, err)
		assert.NotEqual(t, baseHash, hash)
	}
}
