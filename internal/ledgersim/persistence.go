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

package ledgersim

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/kaleido-io/solana-upgrade-gate/internal/confutil"
	"github.com/kaleido-io/solana-upgrade-gate/internal/msgs"
	"github.com/kaleido-io/solana-upgrade-gate/pkg/ledger"
	gormSQLite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DatabaseConfig struct {
	URI             string  `yaml:"uri"`
	AutoMigrate     *bool   `yaml:"autoMigrate"`
	MaxOpenConns    *int    `yaml:"maxOpenConns"`
	MaxIdleConns    *int    `yaml:"maxIdleConns"`
	ConnMaxIdleTime *string `yaml:"connMaxIdleTime"`
	ConnMaxLifetime *string `yaml:"connMaxLifetime"`
}

// AccountRecord is the committed form of one ledger account.
type AccountRecord struct {
	Key        string `gorm:"primaryKey"`
	Owner      string
	Lamports   uint64
	Data       []byte
	Executable bool
}

func (AccountRecord) TableName() string {
	return "accounts"
}

type accountDB struct {
	gdb *gorm.DB
}

func newAccountDB(ctx context.Context, conf *DatabaseConfig) (*accountDB, error) {
	gdb, err := gorm.Open(gormSQLite.Open(conf.URI), &gorm.Config{})
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSimPersistenceInit)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSimPersistenceInit)
	}
	// sqlite defaults to a single connection
	sqlDB.SetMaxOpenConns(confutil.IntMin(conf.MaxOpenConns, 1, 1))
	sqlDB.SetMaxIdleConns(confutil.Int(conf.MaxIdleConns, 1))
	sqlDB.SetConnMaxIdleTime(confutil.Duration(conf.ConnMaxIdleTime, 0))
	sqlDB.SetConnMaxLifetime(confutil.Duration(conf.ConnMaxLifetime, 0))
	if confutil.Bool(conf.AutoMigrate, true) {
		if err := gdb.AutoMigrate(&AccountRecord{}); err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgSimPersistenceInit)
		}
	}
	log.L(ctx).Infof("ledger simulator database open: %s", conf.URI)
	return &accountDB{gdb: gdb}, nil
}

// writeAccounts upserts one transaction's committed accounts in a single
// database transaction.
func (db *accountDB) writeAccounts(ctx context.Context, accts []*ledger.Account) error {
	records := make([]*AccountRecord, len(accts))
	for i, a := range accts {
		records[i] = &AccountRecord{
			Key:        a.Key.String(),
			Owner:      a.Owner.String(),
			Lamports:   a.Lamports,
			Data:       append([]byte(nil), a.Data...),
			Executable: a.Executable,
		}
	}
	err := db.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(records).Error
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgSimPersistenceWrite)
	}
	return nil
}

func (db *accountDB) loadAccounts(ctx context.Context) ([]*ledger.Account, error) {
	var records []*AccountRecord
	if err := db.gdb.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSimPersistenceLoad)
	}
	accts := make([]*ledger.Account, 0, len(records))
	for _, r := range records {
		key, err := solana.PublicKeyFromBase58(r.Key)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgSimPersistenceLoad)
		}
		owner, err := solana.PublicKeyFromBase58(r.Owner)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgSimPersistenceLoad)
		}
		accts = append(accts, &ledger.Account{
			Key:        key,
			Owner:      owner,
			Lamports:   r.Lamports,
			Data:       r.Data,
			Executable: r.Executable,
		})
	}
	return accts, nil
}
