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

// Package calibre is an HTTP client for the calibre content server's ajax and
// download endpoints. It covers exactly the three calls the sync needs:
// listing the books in a category item, fetching one book's metadata, and
// streaming one book's EPUB body.
package calibre

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
)

const (
	version   = "0.2.0"
	userAgent = "shelfsync " + version
)

// 🎯 ContentServer talks to one calibre content server instance.
type ContentServer struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

// 🏭 New creates a content server client. Credentials may both be empty, in
// which case no Authorization header is sent.
func New(client *http.Client, baseURL, username, password string) *ContentServer {
	if client == nil {
		client = http.DefaultClient
	}
	return &ContentServer{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
	}
}

// 📖 BookMetadata is the descriptive record for one book, as the sync consumes
// it. Author is the display form of the server's ordered author list.
type BookMetadata struct {
	Title       string
	Author      string
	Identifiers map[string]string
	Timestamp   time.Time
}

// bookResponse is the wire shape of /ajax/book.
type bookResponse struct {
	Title       string            `json:"title"`
	Authors     []string          `json:"authors"`
	Identifiers map[string]string `json:"identifiers"`
	Timestamp   string            `json:"timestamp"`
}

// 📄 Metadata fetches the metadata record for one book. Any failure here is
// wrapped and returned; the caller treats it as fatal for the run since it
// indicates a systemic server or auth problem.
func (c *ContentServer) Metadata(ctx context.Context, id uint64, library string) (BookMetadata, error) {
	endpoint := fmt.Sprintf("%s/ajax/book/%d/%s", c.baseURL, id, url.PathEscape(library))

	resp, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return BookMetadata{}, errors.Errorf("fetching metadata for book %d: %w", id, err)
	}
	defer resp.Body.Close()

	var book bookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return BookMetadata{}, errors.Errorf("decoding metadata for book %d: %w", id, err)
	}

	timestamp, err := time.Parse(time.RFC3339, book.Timestamp)
	if err != nil {
		return BookMetadata{}, errors.Errorf("parsing timestamp for book %d: %w", id, err)
	}

	return BookMetadata{
		Title:       book.Title,
		Author:      strings.Join(book.Authors, ", "),
		Identifiers: book.Identifiers,
		Timestamp:   timestamp,
	}, nil
}

// 📥 EPUB streams the book body into w and returns the number of bytes
// written. The caller owns w and any cleanup of a partially written copy.
func (c *ContentServer) EPUB(ctx context.Context, id uint64, library string, w io.Writer) (int64, error) {
	endpoint := fmt.Sprintf("%s/get/EPUB/%d/%s", c.baseURL, id, url.PathEscape(library))

	resp, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return 0, errors.Errorf("downloading book %d: %w", id, err)
	}
	defer resp.Body.Close()

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, errors.Errorf("streaming book %d: %w", id, err)
	}
	return written, nil
}

// get issues an authenticated GET with the fixed User-Agent.
func (c *ContentServer) get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Errorf("making request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp, nil
}
