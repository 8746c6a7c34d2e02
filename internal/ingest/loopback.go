package ingest

import (
	"sync"
	"time"
)

// Loopback is an in-process Conn fed from a channel. The server's replies
// are delivered on Replies. It stands in for the socket in debug mode.
type Loopback struct {
	payloads <-chan string
	replies  chan string
	timeout  time.Duration
	once     sync.Once
	closed   chan struct{}
}

func NewLoopback(payloads <-chan string, timeout time.Duration) *Loopback {
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &Loopback{
		payloads: payloads,
		replies:  make(chan string, 128),
		timeout:  timeout,
		closed:   make(chan struct{}),
	}
}

func (l *Loopback) Recv() (string, error) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case <-l.closed:
		return "", ErrClosed
	case payload, ok := <-l.payloads:
		if !ok {
			return "", ErrClosed
		}
		return payload, nil
	case <-timer.C:
		return "", ErrTimeout
	}
}

// Send drops the reply if nobody drains Replies.
func (l *Loopback) Send(reply string) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.replies <- reply:
	default:
	}
	return nil
}

func (l *Loopback) Replies() <-chan string {
	return l.replies
}

func (l *Loopback) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
