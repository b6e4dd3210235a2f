package host

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_RequestFraming(t *testing.T) {
	added := Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)}
	info := Info{
		Title:      "Foo",
		Author:     "A, B",
		Identifier: "00000000deadbeef",
		File: FileInfo{
			Path: "the-library/00000000deadbeef.epub",
			Kind: "epub",
			Size: 1234,
		},
		Added: added,
	}

	tests := []struct {
		name string
		send func(c *Channel) error
		want string
	}{
		{
			name: "notify",
			send: func(c *Channel) error { return c.Notify("Finished syncing books!") },
			want: `{"type":"notify","message":"Finished syncing books!"}`,
		},
		{
			name: "set_wifi",
			send: func(c *Channel) error {
				_, err := c.SetWifi(true)
				return err
			},
			want: `{"type":"setWifi","enable":true}`,
		},
		{
			name: "search",
			send: func(c *Channel) error {
				_, err := c.Search("/mnt/library/sync", "'i ^00000000deadbeef$")
				return err
			},
			want: `{"type":"search","path":"/mnt/library/sync","query":"'i ^00000000deadbeef$"}`,
		},
		{
			name: "add_document",
			send: func(c *Channel) error { return c.AddDocument(info) },
			want: `{"type":"addDocument","info":{"title":"Foo","author":"A, B","identifier":"00000000deadbeef","file":{"path":"the-library/00000000deadbeef.epub","kind":"epub","size":1234},"added":"2024-01-01 00:00:00"}}`,
		},
		{
			name: "update_document",
			send: func(c *Channel) error {
				return c.UpdateDocument("the-library/00000000deadbeef.epub", info)
			},
			want: `{"type":"updateDocument","path":"the-library/00000000deadbeef.epub","info":{"title":"Foo","author":"A, B","identifier":"00000000deadbeef","file":{"path":"the-library/00000000deadbeef.epub","kind":"epub","size":1234},"added":"2024-01-01 00:00:00"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			channel := NewChannel(&out, strings.NewReader(""))

			require.NoError(t, tt.send(channel))

			line := out.String()
			require.True(t, strings.HasSuffix(line, "\n"), "requests must be newline-terminated")
			assert.Equal(t, tt.want, strings.TrimSuffix(line, "\n"))
			assert.Equal(t, 1, strings.Count(line, "\n"), "exactly one line per request")
		})
	}
}

func TestChannel_Receive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, r Response)
	}{
		{
			name:  "search_results",
			input: `{"type":"search","results":[{"title":"Foo","author":"A","identifier":"abc","file":{"path":"sync/abc.epub","kind":"epub","size":9},"added":"2024-01-01 00:00:00"}]}` + "\n",
			check: func(t *testing.T, r Response) {
				results, ok := r.(*SearchResults)
				require.True(t, ok)
				require.Len(t, results.Results, 1)
				assert.Equal(t, "Foo", results.Results[0].Title)
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), results.Results[0].Added.Time)
			},
		},
		{
			name:  "network_status",
			input: `{"type":"network","status":"connected"}` + "\n",
			check: func(t *testing.T, r Response) {
				status, ok := r.(*NetworkStatus)
				require.True(t, ok)
				assert.Equal(t, "connected", status.Status)
			},
		},
		{
			name:  "unknown_type",
			input: `{"type":"somethingElse"}` + "\n",
			check: func(t *testing.T, r Response) { assert.Nil(t, r) },
		},
		{
			name:  "garbage_line",
			input: "not json at all\n",
			check: func(t *testing.T, r Response) { assert.Nil(t, r) },
		},
		{
			name:  "empty_input",
			input: "",
			check: func(t *testing.T, r Response) { assert.Nil(t, r) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := NewChannel(&bytes.Buffer{}, strings.NewReader(tt.input))
			tt.check(t, channel.Receive())
		})
	}
}

func TestChannel_SearchConsumesOneLine(t *testing.T) {
	input := `{"type":"search","results":[]}` + "\n" + `{"type":"network","status":"up"}` + "\n"
	channel := NewChannel(&bytes.Buffer{}, strings.NewReader(input))

	results, err := channel.Search("/sync", "'i ^x$")
	require.NoError(t, err)
	require.NotNil(t, results)
	assert.Empty(t, results.Results)

	// The second line is still there for the next exchange.
	status, ok := channel.Receive().(*NetworkStatus)
	require.True(t, ok)
	assert.Equal(t, "up", status.Status)
}

func TestChannel_SearchWithoutResponse(t *testing.T) {
	channel := NewChannel(&bytes.Buffer{}, strings.NewReader(""))

	results, err := channel.Search("/sync", "'i ^x$")
	require.NoError(t, err, "a missing response is not an error")
	assert.Nil(t, results)
}

func TestTime_RoundTrip(t *testing.T) {
	original := Time{time.Date(2024, 6, 30, 12, 34, 56, 0, time.Local)}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-30 12:34:56"`, string(data))

	var decoded Time
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded.Time))
}
