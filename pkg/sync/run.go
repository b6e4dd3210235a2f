package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/shelfsync/pkg/calibre"
	"github.com/walteh/shelfsync/pkg/contentkey"
	"github.com/walteh/shelfsync/pkg/host"
	"github.com/walteh/shelfsync/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// ▶️ Run performs one full sync pass. Cancelling ctx stops the loop at the
// next iteration boundary; the book in flight is allowed to finish. The final
// "Finished syncing books!" notification is sent on every non-fatal exit,
// cancellation included.
func (s *Syncer) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	s.bootstrapNetwork()

	if err := os.MkdirAll(s.saveDir, 0o755); err != nil {
		return errors.Errorf("creating save directory: %w", err)
	}

	// Cancellation is cooperative: ctx is polled only between books, so
	// in-flight requests run on a context the termination signal cannot
	// abort. A book already being fetched finishes or fails on its own.
	workCtx := context.WithoutCancel(ctx)
	books := s.library.Books(workCtx, s.settings.Category, s.settings.Item, s.settings.Library)

	for {
		if ctx.Err() != nil {
			logger.Debug().Msg("cancellation observed, draining")
			break
		}

		id, ok := books.Next()
		if !ok {
			break
		}

		if err := s.syncBook(workCtx, id); err != nil {
			return errors.Errorf("syncing book %d: %w", id, err)
		}
	}

	if err := books.Err(); err != nil {
		// The listing conflates exhaustion with failure on the wire; at
		// least surface the difference locally.
		logger.Warn().Err(err).Msg("listing ended on a page failure, not exhaustion")
	}

	if err := s.host.Notify("Finished syncing books!"); err != nil {
		return errors.Errorf("sending final notification: %w", err)
	}

	return nil
}

// bootstrapNetwork negotiates connectivity with the host when the run started
// offline. With wifi down we ask for it and move on; with wifi up but the
// network still pending we block once for the host's wake-up line, contents
// ignored.
func (s *Syncer) bootstrapNetwork() {
	if s.online {
		return
	}
	if !s.wifi {
		_ = s.host.Notify("Establishing a network connection.")
		_, _ = s.host.SetWifi(true)
		return
	}
	_ = s.host.Notify("Waiting for the network to come up.")
	_ = s.host.Receive()
}

// syncBook runs one per-book cycle. Only systemic problems come back as
// errors; a failed body download cleans up after itself and lets the loop
// continue.
func (s *Syncer) syncBook(ctx context.Context, id uint64) error {
	logger := zerolog.Ctx(ctx)

	meta, err := s.library.Metadata(ctx, id, s.settings.Library)
	if err != nil {
		return errors.Errorf("fetching metadata: %w", err)
	}

	key := contentkey.Key(s.stableIdentifier(meta))
	modified := meta.Timestamp.Truncate(time.Second)

	existing, err := s.findExisting(key)
	if err != nil {
		return err
	}

	decision := Decide(existing, modified)
	if decision == DecisionSkip {
		s.logger.Verbosef("Skipping %q", meta.Title)
		s.logger.LogBookOperation(log.BookOperation{Title: meta.Title, Key: key, Decision: "skipped"})
		return nil
	}

	// Being unable to open a file for writing is systemic (full or read-only
	// filesystem) and fatal; a failed body download only costs this book.
	path := filepath.Join(s.saveDir, key+".epub")
	file, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating %s: %w", path, err)
	}

	size, err := s.downloadInto(ctx, id, file, path)
	if err != nil {
		s.logger.Errorf("Can't download %q: %v.", meta.Title, err)
		s.logger.LogBookOperation(log.BookOperation{Title: meta.Title, Key: key, Decision: "failed"})
		return nil
	}

	rel, err := filepath.Rel(s.libraryRoot, path)
	if err != nil {
		// A save dir outside the library root leaves the host with no
		// path it can resolve, so there is nothing to announce.
		logger.Warn().Err(err).Str("path", path).Msg("save path not under library root, skipping notification")
		return nil
	}

	info := host.Info{
		Title:      meta.Title,
		Author:     meta.Author,
		Identifier: key,
		File: host.FileInfo{
			Path: rel,
			Kind: "epub",
			Size: uint64(size),
		},
		Added: host.Time{Time: modified},
	}

	if decision == DecisionFetchNew {
		if err := s.host.AddDocument(info); err != nil {
			return errors.Errorf("announcing new document: %w", err)
		}
		s.logger.LogBookOperation(log.BookOperation{Title: meta.Title, Key: key, Decision: "added"})
	} else {
		if err := s.host.UpdateDocument(rel, info); err != nil {
			return errors.Errorf("announcing updated document: %w", err)
		}
		s.logger.LogBookOperation(log.BookOperation{Title: meta.Title, Key: key, Decision: "updated"})
	}

	return nil
}

// stableIdentifier picks the string that gets hashed into the content key:
// the configured identifier field when present, the title otherwise.
func (s *Syncer) stableIdentifier(meta calibre.BookMetadata) string {
	if s.settings.Identifier == "" {
		return meta.Title
	}
	if value, ok := meta.Identifiers[s.settings.Identifier]; ok {
		return value
	}
	s.logger.Statusf("Book %q has no %q identifier, falling back to its title.", meta.Title, s.settings.Identifier)
	return meta.Title
}

// findExisting asks the host for a document already indexed under this key.
// No usable answer counts as no match.
func (s *Syncer) findExisting(key string) (*host.Info, error) {
	results, err := s.host.Search(s.saveDir, fmt.Sprintf("'i ^%s$", key))
	if err != nil {
		return nil, errors.Errorf("searching for existing document: %w", err)
	}
	if results == nil || len(results.Results) == 0 {
		return nil, nil
	}
	return &results.Results[0], nil
}

// downloadInto streams the book body into the already-open file. On any
// failure the partial file is removed best-effort, so it is gone by the time
// we return. The file is closed either way; nothing stays open across books.
func (s *Syncer) downloadInto(ctx context.Context, id uint64, file *os.File, path string) (int64, error) {
	size, err := s.library.EPUB(ctx, id, s.settings.Library, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return size, nil
}
