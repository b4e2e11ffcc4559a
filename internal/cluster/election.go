package cluster

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/utils"
)

// Role is the node's position in the cluster
type Role string

const (
	RoleFollower  Role = "follower"
	RoleCandidate Role = "candidate"
	RoleLeader    Role = "leader"
)

// Candidate is one contender in an election round
type Candidate struct {
	Addr string
	Load float64
}

// DefaultLess orders candidates by (load, address): the least-loaded node
// wins, ties broken by lexicographic address so every node picks the same
// winner.
func DefaultLess(a, b Candidate) bool {
	if a.Load != b.Load {
		return a.Load < b.Load
	}
	return a.Addr < b.Addr
}

// NotLeaderError is the canonical refusal for writes on a non-leader
type NotLeaderError struct {
	Leader string // last known leader, may be empty mid-election
}

func (e *NotLeaderError) Error() string {
	if e.Leader == "" {
		return "not the leader; no leader known"
	}
	return fmt.Sprintf("not the leader; current leader is %s", e.Leader)
}

// Status is a point-in-time view of the elector
type Status struct {
	Role   Role
	Term   uint64
	Leader string
}

// Leadership gates mutating operations on the current role
type Leadership interface {
	IsLeader() bool
	Status() Status
	RequireLeader() error
}

// StaticLeader implements Leadership for single-node deployments: the
// node always reports itself leader.
type StaticLeader struct {
	Addr string
}

func (s *StaticLeader) IsLeader() bool { return true }

func (s *StaticLeader) Status() Status {
	return Status{Role: RoleLeader, Leader: s.Addr}
}

func (s *StaticLeader) RequireLeader() error { return nil }

// Config configures an Elector
type Config struct {
	NodeAddr string   // this node's peer-facing host:port
	Peers    []string // static peer list, may include NodeAddr

	HeartbeatInterval  time.Duration
	ElectionTimeoutMin time.Duration
	ElectionTimeoutMax time.Duration
	LeaderTerm         time.Duration
	NetTimeout         time.Duration

	// Less is the tie-break comparator; DefaultLess when nil
	Less func(a, b Candidate) bool

	// Sampler supplies this node's load; a zero sampler when nil
	Sampler Sampler
}

// Elector runs the leader election loop. One node at a time holds the
// leader role for a bounded term; followers promote themselves after a
// randomized silence window and the least-loaded candidate wins.
type Elector struct {
	cfg       Config
	peers     []string // excluding self
	transport Transport
	logger    *logging.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu            sync.RWMutex
	role          Role
	term          uint64
	leader        string
	termEnd       time.Time // leader tenure end, valid while leader
	lastHeartbeat time.Time

	stopCh chan struct{}
}

// NewElector creates an elector. Zero durations take the package defaults.
func NewElector(cfg Config, transport Transport, logger *logging.Logger) *Elector {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = utils.DefaultHeartbeatInterval
	}
	if cfg.ElectionTimeoutMin <= 0 {
		cfg.ElectionTimeoutMin = utils.DefaultElectionTimeoutMin
	}
	if cfg.ElectionTimeoutMax <= 0 {
		cfg.ElectionTimeoutMax = utils.DefaultElectionTimeoutMax
	}
	if cfg.LeaderTerm <= 0 {
		cfg.LeaderTerm = utils.DefaultLeaderTerm
	}
	if cfg.NetTimeout <= 0 {
		cfg.NetTimeout = utils.DefaultNetTimeout
	}
	if cfg.Less == nil {
		cfg.Less = DefaultLess
	}
	if cfg.Sampler == nil {
		cfg.Sampler = func() float64 { return 0 }
	}

	peers := make([]string, 0, len(cfg.Peers))
	for _, p := range cfg.Peers {
		if p != cfg.NodeAddr {
			peers = append(peers, p)
		}
	}

	return &Elector{
		cfg:       cfg,
		peers:     peers,
		transport: transport,
		logger:    logger,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		role:      RoleFollower,
		stopCh:    make(chan struct{}),
	}
}

// Start begins serving peer messages and running the role loop
func (e *Elector) Start() error {
	if err := e.transport.Start(e.handleMessage); err != nil {
		return err
	}

	e.mu.Lock()
	e.lastHeartbeat = time.Now()
	e.mu.Unlock()

	go e.run()

	e.logger.Info("Elector started",
		"node", e.cfg.NodeAddr,
		"peers", len(e.peers),
	)
	return nil
}

// Stop stops the elector
func (e *Elector) Stop() error {
	close(e.stopCh)
	return e.transport.Stop()
}

// IsLeader reports whether this node currently holds the leader role
func (e *Elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role == RoleLeader
}

// Status returns the current role, term, and last known leader
func (e *Elector) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{Role: e.role, Term: e.term, Leader: e.leader}
}

// RequireLeader returns a NotLeaderError unless this node is the leader
func (e *Elector) RequireLeader() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.role == RoleLeader {
		return nil
	}
	return &NotLeaderError{Leader: e.leader}
}

func (e *Elector) run() {
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		switch e.currentRole() {
		case RoleFollower:
			e.runFollower()
		case RoleCandidate:
			e.runElection()
		case RoleLeader:
			e.runLeader()
		}
	}
}

func (e *Elector) currentRole() Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role
}

// randomTimeout draws a fresh follower timeout from [min, max]
func (e *Elector) randomTimeout() time.Duration {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()

	span := e.cfg.ElectionTimeoutMax - e.cfg.ElectionTimeoutMin
	if span <= 0 {
		return e.cfg.ElectionTimeoutMin
	}
	return e.cfg.ElectionTimeoutMin + time.Duration(e.rnd.Int63n(int64(span)+1))
}

// runFollower watches for leader silence and promotes to candidate when
// the randomized timeout elapses
func (e *Elector) runFollower() {
	timeout := e.randomTimeout()

	ticker := time.NewTicker(e.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if e.role != RoleFollower {
			e.mu.Unlock()
			return
		}
		if time.Since(e.lastHeartbeat) > timeout {
			e.role = RoleCandidate
			e.mu.Unlock()
			e.logger.Info("Leader silent, promoting to candidate",
				"node", e.cfg.NodeAddr,
				"timeout", timeout,
			)
			return
		}
		e.mu.Unlock()
	}
}

func (e *Elector) pollInterval() time.Duration {
	interval := e.cfg.HeartbeatInterval / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// runElection runs one election round: bump the term, snapshot local load,
// poll every peer, and pick the winner with the comparator. Silent peers
// are absent this round.
func (e *Elector) runElection() {
	e.mu.Lock()
	e.term++
	term := e.term
	e.leader = ""
	e.mu.Unlock()

	selfLoad := e.cfg.Sampler()
	self := Candidate{Addr: e.cfg.NodeAddr, Load: selfLoad}

	e.logger.Info("Starting election",
		"node", e.cfg.NodeAddr,
		"term", term,
		"load", selfLoad,
	)

	var (
		respMu     sync.Mutex
		candidates = []Candidate{self}
		higherTerm uint64
		wg         sync.WaitGroup
	)

	for _, peer := range e.peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()

			reply, err := e.transport.Send(peer, Message{
				Type:          MsgLoadRequest,
				Term:          term,
				Candidate:     e.cfg.NodeAddr,
				CandidateLoad: selfLoad,
			})
			if err != nil {
				e.logger.Debug("Peer absent this round", "peer", peer, "error", err)
				return
			}
			if reply.Type != MsgLoadResponse {
				return
			}

			respMu.Lock()
			defer respMu.Unlock()
			if reply.Term > term && reply.Term > higherTerm {
				higherTerm = reply.Term
			}
			candidates = append(candidates, Candidate{Addr: reply.Addr, Load: reply.Load})
		}(peer)
	}
	wg.Wait()

	e.mu.Lock()

	if higherTerm > e.term {
		e.term = higherTerm
		e.role = RoleFollower
		e.lastHeartbeat = time.Now()
		e.mu.Unlock()
		e.logger.Info("Higher term observed, standing down", "term", higherTerm)
		return
	}

	// A heartbeat or announce may have demoted us while polling
	if e.role != RoleCandidate || e.term != term {
		e.mu.Unlock()
		return
	}

	winner := candidates[0]
	for _, c := range candidates[1:] {
		if e.cfg.Less(c, winner) {
			winner = c
		}
	}

	if winner.Addr != e.cfg.NodeAddr {
		// Wait for the winner's announce as a follower
		e.role = RoleFollower
		e.lastHeartbeat = time.Now()
		e.mu.Unlock()
		e.logger.Info("Election lost",
			"term", term,
			"winner", winner.Addr,
			"winner_load", winner.Load,
		)
		return
	}

	e.role = RoleLeader
	e.leader = e.cfg.NodeAddr
	e.termEnd = time.Now().Add(e.cfg.LeaderTerm)
	termEnd := e.termEnd
	e.mu.Unlock()

	e.logger.Info("Election won",
		"term", term,
		"term_end", termEnd.Format(time.RFC3339),
		"candidates", len(candidates),
	)

	e.broadcast(Message{
		Type:        MsgLeaderAnnounce,
		Term:        term,
		Leader:      e.cfg.NodeAddr,
		TermEndUnix: termEnd.Unix(),
	})
}

// runLeader heartbeats until the tenure expires, then steps down and runs
// again as a candidate
func (e *Elector) runLeader() {
	ticker := time.NewTicker(e.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		e.mu.Lock()
		if e.role != RoleLeader {
			e.mu.Unlock()
			return
		}
		term := e.term
		termEnd := e.termEnd
		e.mu.Unlock()

		if time.Now().After(termEnd) {
			e.mu.Lock()
			if e.role == RoleLeader {
				e.role = RoleCandidate
			}
			e.mu.Unlock()
			e.logger.Info("Leader term expired, stepping down", "term", term)
			return
		}

		e.broadcast(Message{
			Type:        MsgHeartbeat,
			Term:        term,
			Leader:      e.cfg.NodeAddr,
			TermEndUnix: termEnd.Unix(),
		})

		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
		}
	}
}

// broadcast fires a message at every peer without waiting for replies
func (e *Elector) broadcast(msg Message) {
	for _, peer := range e.peers {
		go func(peer string) {
			if err := e.transport.Notify(peer, msg); err != nil {
				e.logger.Debug("Broadcast failed", "peer", peer, "error", err)
			}
		}(peer)
	}
}

// handleMessage serves inbound peer traffic
func (e *Elector) handleMessage(msg Message) *Message {
	switch msg.Type {
	case MsgPing:
		return &Message{Type: MsgPing}

	case MsgHeartbeat, MsgLeaderAnnounce:
		e.observeLeader(msg.Leader, msg.Term)
		return nil

	case MsgLoadRequest:
		e.mu.Lock()
		if msg.Term > e.term {
			// A newer election is running; join it as a follower and hold
			// off our own timeout
			e.term = msg.Term
			if e.role != RoleFollower {
				e.role = RoleFollower
			}
			e.lastHeartbeat = time.Now()
		}
		term := e.term
		e.mu.Unlock()

		return &Message{
			Type: MsgLoadResponse,
			Addr: e.cfg.NodeAddr,
			Load: e.cfg.Sampler(),
			Term: term,
		}
	}

	return nil
}

// observeLeader processes a leadership claim. Higher terms always win;
// equal-term conflicts between two leaders resolve by address order.
func (e *Elector) observeLeader(leader string, term uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if term < e.term {
		return
	}

	if term == e.term && e.role == RoleLeader {
		if leader == e.cfg.NodeAddr || leader >= e.cfg.NodeAddr {
			return
		}
		// Same-term conflict, the lower address keeps the role
		e.logger.Warn("Conflicting leader at same term, yielding",
			"term", term,
			"leader", leader,
		)
	}

	if term > e.term && e.role == RoleLeader {
		e.logger.Info("Higher term observed, stepping down",
			"term", term,
			"leader", leader,
		)
	}

	e.term = term
	e.role = RoleFollower
	e.leader = leader
	e.lastHeartbeat = time.Now()
}
