// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PgxIface is the subset of pgxpool.Pool the handlers use; satisfied by
// pgxmock in tests
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
}

var pool PgxIface

// Connect opens the pgx connection pool from the database.url setting and
// verifies connectivity with a ping
func Connect(ctx context.Context) error {
	conn, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Err(err).Msg("could not connect to database")
		return err
	}

	if err := conn.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("database ping failed")
		return err
	}

	pool = conn
	return nil
}

// SetPool replaces the connection pool; used by tests to install a mock
func SetPool(p PgxIface) {
	pool = p
}

// Pool returns the active connection pool
func Pool() PgxIface {
	return pool
}
