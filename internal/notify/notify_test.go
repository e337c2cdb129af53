package notify

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminousdeep/pkg/logging"
)

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type":"register","user_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.UserID)

	_, err = parseRegisterMessage([]byte(`{"type":"register"}`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestServer_RegisterAndBroadcast(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("127.0.0.1:0", reg, logging.Discard())
	go func() { _ = srv.Run() }()
	defer srv.Close()

	require.Eventually(t, func() bool { return srv.LocalAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	client, err := net.DialUDP("udp", nil, srv.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte(`{"type":"register","user_id":"reader-1"}`))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.BroadcastNewSignal("s1e1-first-light", "First Light", 1, 1)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, err := client.Read(buf)
	require.NoError(t, err)

	var msg NewSignalMessage
	require.NoError(t, json.Unmarshal(buf[:n], &msg))
	assert.Equal(t, NewSignalMessageType, msg.Type)
	assert.Equal(t, "s1e1-first-light", msg.Slug)
	assert.Equal(t, 1, msg.Episode)
}
