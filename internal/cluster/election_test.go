package cluster

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil/internal/logging"
)

// memNetwork wires electors together in process, no sockets
type memNetwork struct {
	mu    sync.RWMutex
	nodes map[string]*memTransport
}

func newMemNetwork() *memNetwork {
	return &memNetwork{nodes: make(map[string]*memTransport)}
}

func (n *memNetwork) transport(addr string) *memTransport {
	n.mu.Lock()
	defer n.mu.Unlock()

	t := &memTransport{net: n, addr: addr}
	n.nodes[addr] = t
	return t
}

func (n *memNetwork) handlerFor(addr string) HandlerFunc {
	n.mu.RLock()
	defer n.mu.RUnlock()

	t, ok := n.nodes[addr]
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	return t.handler
}

type memTransport struct {
	net     *memNetwork
	addr    string
	mu      sync.Mutex
	handler HandlerFunc
	stopped bool
}

func (t *memTransport) Start(handler HandlerFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
	return nil
}

func (t *memTransport) Send(addr string, msg Message) (Message, error) {
	handler := t.net.handlerFor(addr)
	if handler == nil {
		return Message{}, fmt.Errorf("peer %s unreachable", addr)
	}
	reply := handler(msg)
	if reply == nil {
		return Message{}, fmt.Errorf("no reply from %s", addr)
	}
	return *reply, nil
}

func (t *memTransport) Notify(addr string, msg Message) error {
	handler := t.net.handlerFor(addr)
	if handler == nil {
		return fmt.Errorf("peer %s unreachable", addr)
	}
	handler(msg)
	return nil
}

func (t *memTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}

func testConfig(addr string, peers []string, load float64) Config {
	return Config{
		NodeAddr:           addr,
		Peers:              peers,
		HeartbeatInterval:  20 * time.Millisecond,
		ElectionTimeoutMin: 60 * time.Millisecond,
		ElectionTimeoutMax: 120 * time.Millisecond,
		LeaderTerm:         5 * time.Second,
		NetTimeout:         time.Second,
		Sampler:            func() float64 { return load },
	}
}

func startCluster(t *testing.T, loads map[string]float64) map[string]*Elector {
	t.Helper()

	network := newMemNetwork()
	peers := make([]string, 0, len(loads))
	for addr := range loads {
		peers = append(peers, addr)
	}

	electors := make(map[string]*Elector, len(loads))
	for addr, load := range loads {
		e := NewElector(testConfig(addr, peers, load), network.transport(addr), logging.Global())
		require.NoError(t, e.Start())
		electors[addr] = e
	}

	t.Cleanup(func() {
		for _, e := range electors {
			_ = e.Stop()
		}
	})

	return electors
}

func leaders(electors map[string]*Elector) []string {
	var out []string
	for addr, e := range electors {
		if e.IsLeader() {
			out = append(out, addr)
		}
	}
	return out
}

func TestDefaultLess(t *testing.T) {
	a := Candidate{Addr: "node-b:7000", Load: 10}
	b := Candidate{Addr: "node-a:7000", Load: 20}

	assert.True(t, DefaultLess(a, b))
	assert.False(t, DefaultLess(b, a))

	// Equal load falls back to address order
	b.Load = 10
	assert.True(t, DefaultLess(b, a))
	assert.False(t, DefaultLess(a, b))
}

func TestNotLeaderError(t *testing.T) {
	err := &NotLeaderError{Leader: "node-a:7000"}
	assert.Contains(t, err.Error(), "node-a:7000")

	assert.Contains(t, (&NotLeaderError{}).Error(), "no leader known")
}

func TestStaticLeader(t *testing.T) {
	s := &StaticLeader{Addr: "solo:7000"}
	assert.True(t, s.IsLeader())
	assert.NoError(t, s.RequireLeader())
	assert.Equal(t, RoleLeader, s.Status().Role)
	assert.Equal(t, "solo:7000", s.Status().Leader)
}

func TestLowestLoadWinsElection(t *testing.T) {
	electors := startCluster(t, map[string]float64{
		"node-a:7000": 60,
		"node-b:7000": 10,
		"node-c:7000": 80,
	})

	require.Eventually(t, func() bool {
		return len(leaders(electors)) == 1 && electors["node-b:7000"].IsLeader()
	}, 3*time.Second, 20*time.Millisecond, "least-loaded node should win")

	// Everyone converges on the same leader
	require.Eventually(t, func() bool {
		for _, e := range electors {
			if e.Status().Leader != "node-b:7000" {
				return false
			}
		}
		return true
	}, 3*time.Second, 20*time.Millisecond)
}

func TestEqualLoadTieBreaksByAddress(t *testing.T) {
	electors := startCluster(t, map[string]float64{
		"node-a:7000": 50,
		"node-b:7000": 50,
		"node-c:7000": 50,
	})

	require.Eventually(t, func() bool {
		return len(leaders(electors)) == 1 && electors["node-a:7000"].IsLeader()
	}, 3*time.Second, 20*time.Millisecond, "lowest address should win the tie")
}

func TestOnlyOneLeaderAtATime(t *testing.T) {
	electors := startCluster(t, map[string]float64{
		"node-a:7000": 30,
		"node-b:7000": 40,
	})

	require.Eventually(t, func() bool {
		return len(leaders(electors)) == 1
	}, 3*time.Second, 20*time.Millisecond)

	// Sample repeatedly; the invariant must hold under heartbeats
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, len(leaders(electors)), 1)
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRequireLeaderCarriesLeaderAddr(t *testing.T) {
	electors := startCluster(t, map[string]float64{
		"node-a:7000": 10,
		"node-b:7000": 90,
	})

	require.Eventually(t, func() bool {
		return electors["node-a:7000"].IsLeader() &&
			electors["node-b:7000"].Status().Leader == "node-a:7000"
	}, 3*time.Second, 20*time.Millisecond)

	assert.NoError(t, electors["node-a:7000"].RequireLeader())

	err := electors["node-b:7000"].RequireLeader()
	require.Error(t, err)
	var nle *NotLeaderError
	require.ErrorAs(t, err, &nle)
	assert.Equal(t, "node-a:7000", nle.Leader)
}

func TestHigherTermDemotesLeader(t *testing.T) {
	network := newMemNetwork()
	e := NewElector(testConfig("node-a:7000", []string{"node-a:7000", "node-b:7000"}, 10),
		network.transport("node-a:7000"), logging.Global())

	// Pin the node into a led state without running the loop
	e.mu.Lock()
	e.role = RoleLeader
	e.term = 3
	e.leader = "node-a:7000"
	e.termEnd = time.Now().Add(time.Hour)
	e.mu.Unlock()

	e.handleMessage(Message{
		Type:   MsgHeartbeat,
		Term:   7,
		Leader: "node-b:7000",
	})

	status := e.Status()
	assert.Equal(t, RoleFollower, status.Role)
	assert.Equal(t, uint64(7), status.Term)
	assert.Equal(t, "node-b:7000", status.Leader)
}

func TestStaleTermIgnored(t *testing.T) {
	network := newMemNetwork()
	e := NewElector(testConfig("node-a:7000", []string{"node-a:7000"}, 10),
		network.transport("node-a:7000"), logging.Global())

	e.mu.Lock()
	e.role = RoleLeader
	e.term = 5
	e.leader = "node-a:7000"
	e.mu.Unlock()

	e.handleMessage(Message{
		Type:   MsgLeaderAnnounce,
		Term:   2,
		Leader: "node-b:7000",
	})

	status := e.Status()
	assert.Equal(t, RoleLeader, status.Role)
	assert.Equal(t, uint64(5), status.Term)
}

func TestLoadRequestGetsResponse(t *testing.T) {
	network := newMemNetwork()
	e := NewElector(testConfig("node-a:7000", []string{"node-a:7000"}, 42),
		network.transport("node-a:7000"), logging.Global())

	reply := e.handleMessage(Message{
		Type:          MsgLoadRequest,
		Term:          1,
		Candidate:     "node-b:7000",
		CandidateLoad: 12,
	})

	require.NotNil(t, reply)
	assert.Equal(t, MsgLoadResponse, reply.Type)
	assert.Equal(t, "node-a:7000", reply.Addr)
	assert.Equal(t, float64(42), reply.Load)
}

func TestPingEchoes(t *testing.T) {
	network := newMemNetwork()
	e := NewElector(testConfig("node-a:7000", []string{"node-a:7000"}, 0),
		network.transport("node-a:7000"), logging.Global())

	reply := e.handleMessage(Message{Type: MsgPing})
	require.NotNil(t, reply)
	assert.Equal(t, MsgPing, reply.Type)
}

func TestLeaderTermExpiryForcesReelection(t *testing.T) {
	network := newMemNetwork()
	peers := []string{"node-a:7000", "node-b:7000"}

	electors := make(map[string]*Elector)
	for addr, load := range map[string]float64{"node-a:7000": 10, "node-b:7000": 90} {
		cfg := testConfig(addr, peers, load)
		cfg.LeaderTerm = 150 * time.Millisecond
		e := NewElector(cfg, network.transport(addr), logging.Global())
		require.NoError(t, e.Start())
		electors[addr] = e
	}
	defer func() {
		for _, e := range electors {
			_ = e.Stop()
		}
	}()

	require.Eventually(t, func() bool {
		return electors["node-a:7000"].IsLeader()
	}, 3*time.Second, 10*time.Millisecond)

	firstTerm := electors["node-a:7000"].Status().Term

	// After the tenure expires the node must win again at a higher term
	require.Eventually(t, func() bool {
		s := electors["node-a:7000"].Status()
		return s.Role == RoleLeader && s.Term > firstTerm
	}, 3*time.Second, 10*time.Millisecond, "term must advance across tenures")
}
