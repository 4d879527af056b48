package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFraming(t *testing.T) {
	t.Run("encode terminates with newline", func(t *testing.T) {
		frame, err := EncodeRequest(Request{
			ID:        "req-1",
			Operation: "get_file_content",
			Arguments: map[string]interface{}{"path": "README.md"},
		})
		require.NoError(t, err)
		assert.Equal(t, byte('\n'), frame[len(frame)-1])

		req, err := DecodeRequest(frame[:len(frame)-1])
		require.NoError(t, err)
		assert.Equal(t, "req-1", req.ID)
		assert.Equal(t, "get_file_content", req.Operation)
		assert.Equal(t, "README.md", req.Arguments["path"])
	})

	t.Run("missing id rejected", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{"operation":"ping"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{"id":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed frame")
	})
}

func TestResponseFraming(t *testing.T) {
	t.Run("result response round trips", func(t *testing.T) {
		frame, err := EncodeResponse(Response{
			ID:     "req-2",
			Result: json.RawMessage(`{"files": 42}`),
		})
		require.NoError(t, err)

		resp, err := DecodeResponse(frame)
		require.NoError(t, err)
		assert.Equal(t, "req-2", resp.ID)
		assert.Nil(t, resp.Error)
		assert.JSONEq(t, `{"files": 42}`, string(resp.Result))
	})

	t.Run("error response round trips", func(t *testing.T) {
		frame, err := EncodeResponse(Response{
			ID:    "req-3",
			Error: &WireError{Kind: ErrKindRemote, Message: "file not found"},
		})
		require.NoError(t, err)

		resp, err := DecodeResponse(frame)
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrKindRemote, resp.Error.Kind)
		assert.Equal(t, "file not found", resp.Error.Message)
	})

	t.Run("missing id rejected", func(t *testing.T) {
		_, err := DecodeResponse([]byte(`{"result": {}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
	})
}

func TestCallError(t *testing.T) {
	t.Run("carries kind and message", func(t *testing.T) {
		err := NewCallError(ErrKindTimeout, "call to %s expired", "git_history")
		assert.Equal(t, ErrKindTimeout, KindOf(err))
		assert.Contains(t, err.Error(), "call to git_history expired")
	})

	t.Run("foreign errors classify as protocol", func(t *testing.T) {
		assert.Equal(t, ErrKindProtocol, KindOf(json.Unmarshal([]byte("{"), &struct{}{})))
	})
}
