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

package auth

import (
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
	"github.com/spf13/viper"
)

var ErrNoSecret = errors.New("auth.secret is not configured")

// TokenLifetime is how long an issued access token stays valid
const TokenLifetime = 10 * time.Minute

// TokenResponse is the body returned by signup and login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// SignToken issues an HS256 access token with the user ID as subject
func SignToken(userID string) (*TokenResponse, error) {
	secret := viper.GetString("auth.secret")
	if secret == "" {
		return nil, ErrNoSecret
	}

	token := jwt.New()
	now := time.Now()
	if err := token.Set(jwt.SubjectKey, userID); err != nil {
		return nil, err
	}
	if err := token.Set(jwt.IssuedAtKey, now); err != nil {
		return nil, err
	}
	if err := token.Set(jwt.ExpirationKey, now.Add(TokenLifetime)); err != nil {
		return nil, err
	}

	signed, err := jwt.Sign(token, jwa.HS256, []byte(secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{AccessToken: string(signed)}, nil
}

// ParseToken verifies the signature and validity window of an access token
func ParseToken(raw string) (jwt.Token, error) {
	secret := viper.GetString("auth.secret")
	if secret == "" {
		return nil, ErrNoSecret
	}

	return jwt.Parse([]byte(raw),
		jwt.WithValidate(true),
		jwt.WithVerify(jwa.HS256, []byte(secret)),
	)
}
