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

package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/risk-pulse/rp-api/auth"
	"github.com/spf13/viper"
)

var _ = Describe("Token", func() {
	BeforeEach(func() {
		viper.Set("auth.secret", "unit-test-secret")
	})

	AfterEach(func() {
		viper.Set("auth.secret", "")
	})

	It("round trips the user id through sign and parse", func() {
		resp, err := auth.SignToken("b6b2e9bb-3a20-4d1c-9be5-3f6c9d7e8a1f")
		Expect(err).To(BeNil())
		Expect(resp.AccessToken).ToNot(BeEmpty())

		token, err := auth.ParseToken(resp.AccessToken)
		Expect(err).To(BeNil())
		Expect(token.Subject()).To(Equal("b6b2e9bb-3a20-4d1c-9be5-3f6c9d7e8a1f"))
	})

	It("rejects a token signed with a different secret", func() {
		resp, err := auth.SignToken("user-1")
		Expect(err).To(BeNil())

		viper.Set("auth.secret", "some-other-secret")
		_, err = auth.ParseToken(resp.AccessToken)
		Expect(err).ToNot(BeNil())
	})

	It("rejects a tampered token", func() {
		resp, err := auth.SignToken("user-1")
		Expect(err).To(BeNil())

		_, err = auth.ParseToken(resp.AccessToken + "x")
		Expect(err).ToNot(BeNil())
	})

	It("refuses to sign without a configured secret", func() {
		viper.Set("auth.secret", "")
		_, err := auth.SignToken("user-1")
		Expect(err).To(MatchError(auth.ErrNoSecret))
	})
})
