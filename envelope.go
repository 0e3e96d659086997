package transmission

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Method is a Transmission RPC method name.
type Method string

const (
	MethodSessionGet         Method = "session-get"
	MethodSessionSet         Method = "session-set"
	MethodSessionStats       Method = "session-stats"
	MethodTorrentGet         Method = "torrent-get"
	MethodTorrentSet         Method = "torrent-set"
	MethodTorrentAdd         Method = "torrent-add"
	MethodTorrentSetLocation Method = "torrent-set-location"
	MethodTorrentStart       Method = "torrent-start"
	MethodTorrentStartNow    Method = "torrent-start-now"
	MethodTorrentStop        Method = "torrent-stop"
	MethodTorrentVerify      Method = "torrent-verify"
	MethodTorrentReannounce  Method = "torrent-reannounce"
	MethodTorrentRenamePath  Method = "torrent-rename-path"
	MethodTorrentRemove      Method = "torrent-remove"
	MethodFreeSpace          Method = "free-space"
)

// ResultSuccess is the "result" value of a successful response.
const ResultSuccess = "success"

// RequestBody is the JSON envelope sent for every RPC call.
// Tag is assigned by the client; any value set by the caller is replaced.
type RequestBody struct {
	Method    Method `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
	Tag       uint64 `json:"tag,omitempty"`
}

// Response is the decoded envelope of an RPC reply. Arguments is only
// meaningful when Result equals ResultSuccess.
type Response[T any] struct {
	Result    string
	Arguments T
	Tag       *uint64
}

// Empty is used as the argument type of calls whose response carries no data.
type Empty struct{}

type rawResponse struct {
	Result    *string         `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
	Tag       *uint64         `json:"tag"`
}

// decodeResponse parses a reply body. A non-success result is returned as a
// server error; structural problems are returned as decode errors.
func decodeResponse[T any](data []byte) (Response[T], error) {
	var out Response[T]

	if len(bytes.TrimSpace(data)) == 0 {
		return out, newDecodeError("response does not have a body", nil)
	}

	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return out, newDecodeError("failed to parse response envelope", err)
	}
	if raw.Result == nil {
		return out, newDecodeError(`missing "result" key in the response`, nil)
	}

	out.Result = *raw.Result
	out.Tag = raw.Tag

	if out.Result != ResultSuccess {
		return out, newServerError(out.Result)
	}

	if len(raw.Arguments) == 0 || bytes.Equal(raw.Arguments, []byte("null")) {
		if _, ok := any(out.Arguments).(Empty); ok {
			return out, nil
		}
		return out, newDecodeError(`missing "arguments" key in the response`, nil)
	}
	if err := json.Unmarshal(raw.Arguments, &out.Arguments); err != nil {
		return out, newDecodeError(fmt.Sprintf("failed to decode arguments as %T", out.Arguments), err)
	}

	return out, nil
}
