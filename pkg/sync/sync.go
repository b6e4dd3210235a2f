// Package sync drives one full synchronization pass: it walks the remote
// listing, decides per book whether to fetch, skip, or overwrite, downloads
// book bodies into the save directory, and announces the results to the host.
package sync

import (
	"context"
	"io"
	"time"

	"github.com/walteh/shelfsync/pkg/calibre"
	"github.com/walteh/shelfsync/pkg/config"
	"github.com/walteh/shelfsync/pkg/host"
	"github.com/walteh/shelfsync/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// 🔁 Iterator yields book ids in server order. A false return ends the
// stream; Err reports whether the stream ended on a page failure rather than
// exhaustion.
type Iterator interface {
	Next() (uint64, bool)
	Err() error
}

// 📚 Library is the remote side: the content server's listing, metadata, and
// download endpoints.
type Library interface {
	// Books starts a listing over one (category, item, library) scope
	Books(ctx context.Context, category, item uint64, library string) Iterator
	// Metadata describes one book
	Metadata(ctx context.Context, id uint64, library string) (calibre.BookMetadata, error)
	// EPUB streams one book body into w
	EPUB(ctx context.Context, id uint64, library string, w io.Writer) (int64, error)
}

// 🖥️ Host is the local side: the document manager reached over the stdio
// protocol. *host.Channel satisfies it.
type Host interface {
	Notify(message string) error
	SetWifi(enable bool) (*host.NetworkStatus, error)
	Search(path, query string) (*host.SearchResults, error)
	AddDocument(info host.Info) error
	UpdateDocument(path string, info host.Info) error
	Receive() host.Response
}

// 🎯 Decision is the per-book outcome of comparing the host's record against
// the book's current metadata.
type Decision int

const (
	// DecisionSkip: the host already has this book at this timestamp
	DecisionSkip Decision = iota
	// DecisionFetchNew: the host has no record of this book
	DecisionFetchNew
	// DecisionFetchOverwrite: the host's record is stale
	DecisionFetchOverwrite
)

// Decide applies the timestamp rule: skip iff a record exists and its added
// time equals the book's modification time truncated to whole seconds.
func Decide(existing *host.Info, modified time.Time) Decision {
	if existing == nil {
		return DecisionFetchNew
	}
	if existing.Added.Equal(modified.Truncate(time.Second)) {
		return DecisionSkip
	}
	return DecisionFetchOverwrite
}

// 🔧 Options contains the collaborators for one sync pass.
type Options struct {
	// Settings is the loaded configuration
	Settings *config.Settings
	// Library is the remote content server
	Library Library
	// Host is the document manager channel
	Host Host
	// Logger routes user-visible messages
	Logger *log.Logger
	// LibraryRoot is the root the host resolves document paths against
	LibraryRoot string
	// SaveDir is where downloaded books land
	SaveDir string
	// Wifi reports whether wifi was enabled at invocation
	Wifi bool
	// Online reports whether connectivity was already up at invocation
	Online bool
}

// 🏭 New creates a syncer with the given options.
func New(opts Options) (*Syncer, error) {
	if opts.Settings == nil {
		return nil, errors.New("settings are required")
	}
	if opts.Library == nil {
		return nil, errors.New("library is required")
	}
	if opts.Host == nil {
		return nil, errors.New("host is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Syncer{
		settings:    opts.Settings,
		library:     opts.Library,
		host:        opts.Host,
		logger:      opts.Logger,
		libraryRoot: opts.LibraryRoot,
		saveDir:     opts.SaveDir,
		wifi:        opts.Wifi,
		online:      opts.Online,
	}, nil
}

// 🎮 Syncer implements the sync pass.
type Syncer struct {
	settings    *config.Settings
	library     Library
	host        Host
	logger      *log.Logger
	libraryRoot string
	saveDir     string
	wifi        bool
	online      bool
}

// 🔌 NewLibrary adapts a content server client to the Library interface.
func NewLibrary(server *calibre.ContentServer) Library {
	return &contentLibrary{server: server}
}

type contentLibrary struct {
	server *calibre.ContentServer
}

func (l *contentLibrary) Books(ctx context.Context, category, item uint64, library string) Iterator {
	return l.server.BooksIn(ctx, category, item, library)
}

func (l *contentLibrary) Metadata(ctx context.Context, id uint64, library string) (calibre.BookMetadata, error) {
	return l.server.Metadata(ctx, id, library)
}

func (l *contentLibrary) EPUB(ctx context.Context, id uint64, library string, w io.Writer) (int64, error) {
	return l.server.EPUB(ctx, id, library, w)
}
