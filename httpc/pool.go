package httpc

import (
	"bufio"
	"sync"
	"time"
)

// pooledConn is one reusable transport handle. The buffered reader
// stays with the connection across requests so buffered bytes are
// never lost between responses.
type pooledConn struct {
	conn     Conn
	dr       *deadlineReader
	br       *bufio.Reader
	lastUsed time.Time
}

func (pc *pooledConn) close() {
	pc.conn.Close()
}

// connPool holds idle connections keyed by destination. All methods
// are safe for concurrent use; a Client may be shared across
// goroutines.
type connPool struct {
	mu          sync.Mutex
	idle        map[Destination][]*pooledConn
	maxIdle     int
	idleTimeout time.Duration
}

func newConnPool(maxIdle int, idleTimeout time.Duration) *connPool {
	return &connPool{
		idle:        make(map[Destination][]*pooledConn),
		maxIdle:     maxIdle,
		idleTimeout: idleTimeout,
	}
}

// get returns the most recently used live idle connection for dest.
// Entries past the idle timeout are closed and dropped on the way,
// so expiry needs no background sweeper. ok reports a hit.
func (p *connPool) get(dest Destination) (pc *pooledConn, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.idle[dest]
	if len(list) == 0 {
		return nil, false
	}
	now := time.Now()
	live := list[:0]
	for _, c := range list {
		if p.idleTimeout > 0 && now.Sub(c.lastUsed) > p.idleTimeout {
			c.close()
			continue
		}
		live = append(live, c)
	}
	if len(live) == 0 {
		delete(p.idle, dest)
		return nil, false
	}
	pc = live[len(live)-1]
	live = live[:len(live)-1]
	if len(live) == 0 {
		delete(p.idle, dest)
	} else {
		p.idle[dest] = live
	}
	return pc, true
}

// put stamps the connection and inserts it into the idle set. When
// the destination is at capacity the oldest idle entry is closed to
// make room for the incoming one.
func (p *connPool) put(dest Destination, pc *pooledConn) {
	pc.lastUsed = time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.idle[dest]
	if p.maxIdle > 0 && len(list) >= p.maxIdle {
		list[0].close()
		list = list[1:]
	}
	p.idle[dest] = append(list, pc)
}

// idleCount reports the number of idle connections for dest.
func (p *connPool) idleCount(dest Destination) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[dest])
}

// closeIdle closes every idle connection and empties the pool.
func (p *connPool) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for dest, list := range p.idle {
		for _, pc := range list {
			pc.close()
		}
		delete(p.idle, dest)
	}
}
