package calibre

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
)

// pageSize is the fixed listing page size. The offset advances by this amount
// after every page, even when the server returned fewer ids.
const pageSize = 100

// 📚 Listing lazily pages through the books in one (category, item, library)
// scope. Next yields ids in server order and returns false once the server
// reports an empty page or a page fetch fails; Err distinguishes the two
// after the fact.
type Listing struct {
	ctx      context.Context
	server   *ContentServer
	category uint64
	item     uint64
	library  string

	offset uint64
	page   []uint64
	idx    int
	done   bool
	err    error
}

// 📂 BooksIn starts a listing over the given scope. No request is made until
// the first call to Next.
func (c *ContentServer) BooksIn(ctx context.Context, category, item uint64, library string) *Listing {
	return &Listing{
		ctx:      ctx,
		server:   c,
		category: category,
		item:     item,
		library:  library,
	}
}

// ▶️ Next yields the next book id. A false return means the scope is
// exhausted, or that a page fetch failed (check Err).
func (l *Listing) Next() (uint64, bool) {
	for {
		if l.done {
			return 0, false
		}
		if l.idx < len(l.page) {
			id := l.page[l.idx]
			l.idx++
			return id, true
		}
		l.fetch()
	}
}

// Err reports the page-fetch failure that terminated the listing early, if
// any. Nil after a clean exhaustion.
func (l *Listing) Err() error {
	return l.err
}

// booksInResponse is the wire shape of /ajax/books_in.
type booksInResponse struct {
	BookIDs []uint64 `json:"book_ids"`
	Num     uint64   `json:"num"`
}

func (l *Listing) fetch() {
	endpoint := fmt.Sprintf("%s/ajax/books_in/%d/%d/%s",
		l.server.baseURL, l.category, l.item, url.PathEscape(l.library))
	query := url.Values{
		"offset": []string{strconv.FormatUint(l.offset, 10)},
		"num":    []string{strconv.Itoa(pageSize)},
	}

	resp, err := l.server.get(l.ctx, endpoint, query)
	if err != nil {
		l.err = errors.Errorf("fetching listing page at offset %d: %w", l.offset, err)
		l.done = true
		return
	}
	defer resp.Body.Close()

	var page booksInResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		l.err = errors.Errorf("decoding listing page at offset %d: %w", l.offset, err)
		l.done = true
		return
	}

	// An empty page is the sole termination condition.
	if page.Num == 0 || len(page.BookIDs) == 0 {
		l.done = true
		return
	}

	l.page = page.BookIDs
	l.idx = 0
	l.offset += pageSize
}
