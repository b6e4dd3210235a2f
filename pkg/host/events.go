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

// Package host implements the line-delimited JSON protocol spoken with the
// hosting document manager: typed request events go out on one stream, and the
// response-awaiting kinds read exactly one typed response line back.
package host

import (
	"time"

	"github.com/goccy/go-json"
)

// timeLayout is the host's timestamp format, local time, second precision.
const timeLayout = "2006-01-02 15:04:05"

// 🕐 Time wraps time.Time with the host's wire format.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Local().Format(timeLayout))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// 📄 FileInfo describes the on-disk artifact of a synced document.
type FileInfo struct {
	// Path is relative to the library root
	Path string `json:"path"`
	Kind string `json:"kind"`
	Size uint64 `json:"size"`
}

// 📇 Info is the host's document record: what the host indexes about one
// synced book. Identifier carries the content key, and Added the book's
// modification timestamp at the time it was fetched.
type Info struct {
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Identifier string   `json:"identifier"`
	File       FileInfo `json:"file"`
	Added      Time     `json:"added"`
}

// Request events. Each serializes to a single JSON line tagged by "type".

type notifyRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type setWifiRequest struct {
	Type   string `json:"type"`
	Enable bool   `json:"enable"`
}

type searchRequest struct {
	Type  string `json:"type"`
	Path  string `json:"path"`
	Query string `json:"query"`
}

type addDocumentRequest struct {
	Type string `json:"type"`
	Info Info   `json:"info"`
}

type updateDocumentRequest struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Info Info   `json:"info"`
}

// 📨 Response is one of the two typed replies the host can send:
// SearchResults or NetworkStatus.
type Response interface {
	isResponse()
}

// 🔍 SearchResults answers a search request.
type SearchResults struct {
	Type    string `json:"type"`
	Results []Info `json:"results"`
}

// 📶 NetworkStatus answers a setWifi request.
type NetworkStatus struct {
	Type string `json:"type"`
	// TODO: the hosts observed so far send "true"/"false" strings here;
	// switch to bool once the protocol is versioned
	Status string `json:"status"`
}

func (*SearchResults) isResponse() {}
func (*NetworkStatus) isResponse() {}
