package host

import (
	"bufio"
	"io"
	"os"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
)

// 📡 Channel is a half-duplex request/response channel to the hosting
// application. It is strictly synchronous and single-outstanding: a
// response-awaiting request consumes its response line before the next
// request may be sent. Nothing else may write to out or read from in while
// the channel is in use.
type Channel struct {
	out io.Writer
	in  *bufio.Reader
}

// 🏭 NewChannel builds a channel over an arbitrary stream pair.
func NewChannel(out io.Writer, in io.Reader) *Channel {
	return &Channel{
		out: out,
		in:  bufio.NewReader(in),
	}
}

// 🏭 Stdio builds the production channel: requests on stdout, responses on
// stdin. Stdout then belongs to the protocol; diagnostics must go to stderr.
func Stdio() *Channel {
	return NewChannel(os.Stdout, os.Stdin)
}

// 📢 Notify sends a user-visible status message. Fire-and-forget.
func (c *Channel) Notify(message string) error {
	return c.send(notifyRequest{Type: "notify", Message: message})
}

// 📶 SetWifi asks the host to toggle connectivity, then consumes one response
// line. A nil status with a nil error means the host sent no usable answer,
// which callers treat as "status unknown", not as a failure.
func (c *Channel) SetWifi(enable bool) (*NetworkStatus, error) {
	if err := c.send(setWifiRequest{Type: "setWifi", Enable: enable}); err != nil {
		return nil, err
	}
	if status, ok := c.Receive().(*NetworkStatus); ok {
		return status, nil
	}
	return nil, nil
}

// 🔍 Search queries the host's document index and awaits the result set. A
// nil result with a nil error means the host sent no usable answer; callers
// treat that the same as an empty result set.
func (c *Channel) Search(path, query string) (*SearchResults, error) {
	if err := c.send(searchRequest{Type: "search", Path: path, Query: query}); err != nil {
		return nil, err
	}
	if results, ok := c.Receive().(*SearchResults); ok {
		return results, nil
	}
	return nil, nil
}

// ➕ AddDocument announces a newly downloaded book. Fire-and-forget.
func (c *Channel) AddDocument(info Info) error {
	return c.send(addDocumentRequest{Type: "addDocument", Info: info})
}

// 🔄 UpdateDocument announces an overwritten book. Fire-and-forget.
func (c *Channel) UpdateDocument(path string, info Info) error {
	return c.send(updateDocumentRequest{Type: "updateDocument", Path: path, Info: info})
}

// 📥 Receive consumes exactly one response line and dispatches on its type
// tag. A read failure, a parse failure, or an unknown tag all yield nil;
// absence of a response is never a crash condition.
func (c *Channel) Receive() Response {
	line, err := c.in.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil
	}

	switch probe.Type {
	case "search":
		var results SearchResults
		if err := json.Unmarshal(line, &results); err != nil {
			return nil
		}
		return &results
	case "network":
		var status NetworkStatus
		if err := json.Unmarshal(line, &status); err != nil {
			return nil
		}
		return &status
	default:
		return nil
	}
}

// send writes one newline-terminated JSON line.
func (c *Channel) send(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Errorf("encoding %T: %w", event, err)
	}
	data = append(data, '\n')
	if _, err := c.out.Write(data); err != nil {
		return errors.Errorf("writing %T: %w", event, err)
	}
	return nil
}
