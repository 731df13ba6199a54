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

package handler

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/risk-pulse/rp-api/auth"
	"github.com/risk-pulse/rp-api/database"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

type userUpdateRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// Signup registers a new user and returns an access token
func Signup(c *fiber.Ctx) error {
	params := signupRequest{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		log.Warn().Err(err).Msg("signup bad request")
		return fiber.ErrBadRequest
	}

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if params.Email == "" || params.Password == "" {
		return fiber.ErrBadRequest
	}

	var count int
	countSQL := `SELECT count(*) FROM users WHERE email=$1`
	if err := database.Pool().QueryRow(c.Context(), countSQL, params.Email).Scan(&count); err != nil {
		log.Error().Err(err).Msg("signup email lookup failed")
		return fiber.ErrInternalServerError
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a user with that email already exists",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("could not hash password")
		return fiber.ErrInternalServerError
	}

	userID := uuid.New()
	insertSQL := `INSERT INTO users ("id", "fullname", "email", "password") VALUES ($1, $2, $3, $4)`
	if _, err := database.Pool().Exec(c.Context(), insertSQL, userID, params.Fullname, params.Email, string(hashed)); err != nil {
		log.Error().Err(err).Msg("could not insert user")
		return fiber.ErrInternalServerError
	}

	token, err := auth.SignToken(userID.String())
	if err != nil {
		log.Error().Err(err).Msg("could not sign token")
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(token)
}

// Login authenticates a user and returns an access token
func Login(c *fiber.Ctx) error {
	params := loginRequest{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		log.Warn().Err(err).Msg("login bad request")
		return fiber.ErrBadRequest
	}

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))

	var userID uuid.UUID
	var hashed string
	loginSQL := `SELECT id, password FROM users WHERE email=$1`
	err := database.Pool().QueryRow(c.Context(), loginSQL, params.Email).Scan(&userID, &hashed)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(hashed), []byte(params.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "wrong login details",
		})
	}

	token, err := auth.SignToken(userID.String())
	if err != nil {
		log.Error().Err(err).Msg("could not sign token")
		return fiber.ErrInternalServerError
	}

	return c.JSON(token)
}

// GetUser returns the user with the specified ID
func GetUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	u := userResponse{}
	userSQL := `SELECT id, fullname, email FROM users WHERE id=$1`
	if err := database.Pool().QueryRow(c.Context(), userSQL, userID).Scan(&u.ID, &u.Fullname, &u.Email); err != nil {
		log.Warn().Err(err).Str("UserID", userID).Msg("user not found")
		return fiber.ErrNotFound
	}

	return c.JSON(u)
}

// UpdateUser applies a partial update to the user with the specified ID
func UpdateUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	params := userUpdateRequest{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		log.Warn().Err(err).Str("UserID", userID).Msg("update user bad request")
		return fiber.ErrBadRequest
	}

	u := userResponse{}
	userSQL := `SELECT id, fullname, email FROM users WHERE id=$1`
	if err := database.Pool().QueryRow(c.Context(), userSQL, userID).Scan(&u.ID, &u.Fullname, &u.Email); err != nil {
		return fiber.ErrNotFound
	}

	if params.Fullname == "" {
		params.Fullname = u.Fullname
	}
	if params.Email == "" {
		params.Email = u.Email
	} else {
		params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	}

	updateSQL := `UPDATE users SET fullname=$1, email=$2 WHERE id=$3`
	if _, err := database.Pool().Exec(c.Context(), updateSQL, params.Fullname, params.Email, userID); err != nil {
		log.Error().Err(err).Str("UserID", userID).Msg("could not update user")
		return fiber.ErrInternalServerError
	}

	u.Fullname = params.Fullname
	u.Email = params.Email
	return c.JSON(u)
}

// DeleteUser removes the user with the specified ID. Returns true when
// exactly one user was removed.
func DeleteUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	deleteSQL := `DELETE FROM users WHERE id=$1`
	tag, err := database.Pool().Exec(c.Context(), deleteSQL, userID)
	if err != nil {
		log.Error().Err(err).Str("UserID", userID).Msg("could not delete user")
		return fiber.ErrInternalServerError
	}

	return c.JSON(tag.RowsAffected() == 1)
}
