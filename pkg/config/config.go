// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the shelfsync settings file.
package config

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// 🔧 Settings describes one content-server sync target. The file lives next to
// the binary (Settings.toml by default) and is loaded once per run.
type Settings struct {
	// BaseURL is the root URL of the calibre content server
	BaseURL string `toml:"base_url" yaml:"base_url" json:"base_url"`
	// Username and Password enable HTTP Basic auth when both are set
	Username string `toml:"username,omitempty" yaml:"username,omitempty" json:"username,omitempty"`
	Password string `toml:"password,omitempty" yaml:"password,omitempty" json:"password,omitempty"`
	// Identifier names the metadata identifier field used for content
	// addressing; when empty the book title is hashed instead
	Identifier string `toml:"identifier,omitempty" yaml:"identifier,omitempty" json:"identifier,omitempty"`
	// Category and Item scope the listing endpoint
	Category uint64 `toml:"category" yaml:"category" json:"category"`
	Item     uint64 `toml:"item" yaml:"item" json:"item"`
	// Library is the calibre library name
	Library string `toml:"library" yaml:"library" json:"library"`
	// Log is the host-notification verbosity (0=error .. 3=debug)
	Log *uint64 `toml:"log,omitempty" yaml:"log,omitempty" json:"log,omitempty"`
}

// DefaultVerbosity is used when the settings file omits the log key.
const DefaultVerbosity uint64 = 1

// 📢 Verbosity returns the configured host-notification level.
func (s *Settings) Verbosity() uint64 {
	if s.Log == nil {
		return DefaultVerbosity
	}
	return *s.Log
}

// 🔐 HasCredentials reports whether Basic auth should be applied. Anonymous
// servers are supported by leaving both fields empty.
func (s *Settings) HasCredentials() bool {
	return s.Username != "" && s.Password != ""
}

// ✅ Validate checks the settings for fields the sync cannot run without.
func Validate(ctx context.Context, s *Settings) error {
	if s.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if s.Library == "" {
		return errors.New("library is required")
	}
	if s.Username == "" != (s.Password == "") {
		return errors.New("username and password must be set together")
	}
	return nil
}
