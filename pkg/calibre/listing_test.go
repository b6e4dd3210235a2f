package calibre

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingServer serves /ajax/books_in pages keyed by offset.
func listingServer(t *testing.T, pages map[string]booksInResponse) (*httptest.Server, *[]string) {
	t.Helper()
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/ajax/books_in/"))
		offset := r.URL.Query().Get("offset")
		require.Equal(t, "100", r.URL.Query().Get("num"))
		offsets = append(offsets, offset)

		page, ok := pages[offset]
		if !ok {
			page = booksInResponse{BookIDs: []uint64{}, Num: 0}
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	return srv, &offsets
}

func collect(l *Listing) []uint64 {
	var ids []uint64
	for {
		id, ok := l.Next()
		if !ok {
			return ids
		}
		ids = append(ids, id)
	}
}

func makeIDs(start, n uint64) []uint64 {
	ids := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		ids = append(ids, start+i)
	}
	return ids
}

func TestListing_EmptyFirstPage(t *testing.T) {
	srv, offsets := listingServer(t, map[string]booksInResponse{})
	defer srv.Close()

	server := New(srv.Client(), srv.URL, "", "")
	listing := server.BooksIn(context.Background(), 50, 7, "books")

	assert.Empty(t, collect(listing))
	assert.NoError(t, listing.Err())
	assert.Equal(t, []string{"0"}, *offsets, "a single page fetch should suffice")
}

func TestListing_FullThenPartialPage(t *testing.T) {
	// Two full pages, one partial page of 3, then the empty terminator.
	pages := map[string]booksInResponse{
		"0":   {BookIDs: makeIDs(1000, 100), Num: 100},
		"100": {BookIDs: makeIDs(2000, 100), Num: 100},
		"200": {BookIDs: makeIDs(3000, 3), Num: 3},
	}
	srv, offsets := listingServer(t, pages)
	defer srv.Close()

	server := New(srv.Client(), srv.URL, "", "")
	listing := server.BooksIn(context.Background(), 50, 7, "books")

	ids := collect(listing)
	require.NoError(t, listing.Err())
	require.Len(t, ids, 203)

	want := append(append(makeIDs(1000, 100), makeIDs(2000, 100)...), makeIDs(3000, 3)...)
	assert.Equal(t, want, ids, "ids must come out in server order")

	// The offset advances by the page size regardless of how many ids the
	// partial page actually carried.
	assert.Equal(t, []string{"0", "100", "200", "300"}, *offsets)
}

func TestListing_TransportFailureStopsStream(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"book_ids": [1, 2], "num": 2}`)
			return
		}
		// Kill the second page mid-flight.
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	server := New(srv.Client(), srv.URL, "", "")
	listing := server.BooksIn(context.Background(), 50, 7, "books")

	ids := collect(listing)
	assert.Equal(t, []uint64{1, 2}, ids, "ids from the good page still come through")
	require.Error(t, listing.Err())
	assert.Contains(t, listing.Err().Error(), "offset 100")

	// Terminated for good: further calls keep returning false.
	_, ok := listing.Next()
	assert.False(t, ok)
}

func TestListing_DecodeFailureStopsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"book_ids": [`)
	}))
	defer srv.Close()

	server := New(srv.Client(), srv.URL, "", "")
	listing := server.BooksIn(context.Background(), 50, 7, "books")

	assert.Empty(t, collect(listing))
	require.Error(t, listing.Err())
	assert.Contains(t, listing.Err().Error(), "decoding listing page")
}
