package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-butler/internal/tools"
	"github.com/brandon/mail-butler/internal/triage"
)

func runSession(t *testing.T, lines ...string) []map[string]interface{} {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	reg := tools.NewRegistry(tools.Deps{Policy: triage.NewPolicy(nil, []string{"trusted-domain.com"})}, logger)
	srv := NewServer(reg, "test", logger)

	var out strings.Builder
	require.NoError(t, srv.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))

	var responses []map[string]interface{}
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		responses = append(responses, m)
	}
	return responses
}

func TestInitializeAndList(t *testing.T) {
	resp := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, resp, 2, "notification gets no response")

	info := resp[0]["result"].(map[string]interface{})["serverInfo"].(map[string]interface{})
	assert.Equal(t, "mail-butler", info["name"])

	list := resp[1]["result"].(map[string]interface{})["tools"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "check_reply_needed", list[0].(map[string]interface{})["name"])
}

func TestCallCheckReply(t *testing.T) {
	resp := runSession(t,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"check_reply_needed","arguments":{"sender":"alice@trusted-domain.com","subject":"Contract","body":"Can you send the updated contract by Friday?"}}}`,
	)
	require.Len(t, resp, 1)
	assert.EqualValues(t, 7, resp[0]["id"])

	content := resp[0]["result"].(map[string]interface{})["content"].([]interface{})
	text := content[0].(map[string]interface{})["text"].(string)

	var res tools.CheckResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, "generate-and-autosend", res.Decision)
	assert.Equal(t, "auto-send", res.SendMode)
}

func TestErrors(t *testing.T) {
	resp := runSession(t,
		`not json`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"check_reply_needed","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
	)
	require.Len(t, resp, 4)

	assert.EqualValues(t, -32700, resp[0]["error"].(map[string]interface{})["code"])
	assert.EqualValues(t, -32601, resp[1]["error"].(map[string]interface{})["code"])
	assert.Equal(t, true, resp[2]["result"].(map[string]interface{})["isError"])
	assert.EqualValues(t, -32601, resp[3]["error"].(map[string]interface{})["code"])
}
