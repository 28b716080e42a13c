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

package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestLockerLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "match:tenant_1")

	mock.ExpectSetNX("match:tenant_1", locker.value, 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerLockAlreadyHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "match:tenant_1")

	mock.ExpectSetNX("match:tenant_1", locker.value, 5*time.Second).SetVal(false)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock for key match:tenant_1 is already held")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerUnlock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "match:tenant_1")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	mock.ExpectEval(script, []string{"match:tenant_1"}, locker.value).SetVal(int64(1))

	err := locker.Unlock(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerUnlockNotHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "match:tenant_1")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	mock.ExpectEval(script, []string{"match:tenant_1"}, locker.value).SetVal(int64(0))

	err := locker.Unlock(context.Background())
	assert.EqualError(t, err, "unlock failed, lock match:tenant_1 expired or held by someone else")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerExtendLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "match:tenant_1")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
	mock.ExpectEval(script, []string{"match:tenant_1"}, locker.value, "10000").SetVal(int64(1))

	err := locker.ExtendLock(context.Background(), 10*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerExtendLockExpired(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "match:tenant_1")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
	mock.ExpectEval(script, []string{"match:tenant_1"}, locker.value, "10000").SetVal(int64(0))

	err := locker.ExtendLock(context.Background(), 10*time.Second)
	assert.EqualError(t, err, "lock extension failed, lock match:tenant_1 expired or held by someone else")
	assert.NoError(t, mock.ExpectationsWereMet())
}
