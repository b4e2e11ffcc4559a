package cluster

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil/internal/logging"
)

func TestTCPTransportSendReceive(t *testing.T) {
	server := NewTCPTransport("127.0.0.1:0", time.Second, logging.Global())
	require.NoError(t, server.Start(func(msg Message) *Message {
		assert.Equal(t, MsgLoadRequest, msg.Type)
		return &Message{Type: MsgLoadResponse, Addr: "server", Load: 12.5, Term: msg.Term}
	}))
	defer server.Stop()

	client := NewTCPTransport("127.0.0.1:0", time.Second, logging.Global())

	reply, err := client.Send(server.Addr(), Message{Type: MsgLoadRequest, Term: 4})
	require.NoError(t, err)
	assert.Equal(t, MsgLoadResponse, reply.Type)
	assert.Equal(t, "server", reply.Addr)
	assert.Equal(t, 12.5, reply.Load)
	assert.Equal(t, uint64(4), reply.Term)
}

func TestTCPTransportNotify(t *testing.T) {
	received := make(chan Message, 1)

	server := NewTCPTransport("127.0.0.1:0", time.Second, logging.Global())
	require.NoError(t, server.Start(func(msg Message) *Message {
		received <- msg
		return nil
	}))
	defer server.Stop()

	client := NewTCPTransport("127.0.0.1:0", time.Second, logging.Global())
	require.NoError(t, client.Notify(server.Addr(), Message{
		Type:   MsgHeartbeat,
		Term:   9,
		Leader: "node-a:7000",
	}))

	select {
	case msg := <-received:
		assert.Equal(t, MsgHeartbeat, msg.Type)
		assert.Equal(t, "node-a:7000", msg.Leader)
	case <-time.After(time.Second):
		t.Fatal("notify not delivered")
	}
}

func TestTCPTransportDialFailure(t *testing.T) {
	client := NewTCPTransport("127.0.0.1:0", 100*time.Millisecond, logging.Global())

	_, err := client.Send("127.0.0.1:1", Message{Type: MsgPing})
	assert.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Message{Type: MsgLeaderAnnounce, Term: 3, Leader: "node-a:7000", TermEndUnix: 1700000000}

	require.NoError(t, writeFrame(&buf, in))

	out, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	_, err := readFrame(&buf)
	assert.Error(t, err)
}
