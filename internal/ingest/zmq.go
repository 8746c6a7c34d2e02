package ingest

import (
	"errors"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

// DialLinger bounds how long Close on a producer socket waits to flush
// queued requests, so a sentinel sent right before Close still goes out.
const DialLinger = time.Second

// ZMQConn adapts a zmq4 REP or REQ socket to Conn.
type ZMQConn struct {
	socket *zmq4.Socket
}

// Bind opens the server side (REP) on endpoint, e.g. "tcp://127.0.0.1:7000".
func Bind(endpoint string, recvTimeout time.Duration) (*ZMQConn, error) {
	return open(zmq4.REP, 0, recvTimeout, func(s *zmq4.Socket) error {
		return s.Bind(endpoint)
	})
}

// Dial opens the producer side (REQ) against endpoint.
func Dial(endpoint string, recvTimeout time.Duration) (*ZMQConn, error) {
	return open(zmq4.REQ, DialLinger, recvTimeout, func(s *zmq4.Socket) error {
		return s.Connect(endpoint)
	})
}

func open(kind zmq4.Type, linger, recvTimeout time.Duration, attach func(*zmq4.Socket) error) (*ZMQConn, error) {
	socket, err := zmq4.NewSocket(kind)
	if err != nil {
		return nil, err
	}
	if err := socket.SetLinger(linger); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if recvTimeout > 0 {
		if err := socket.SetRcvtimeo(recvTimeout); err != nil {
			_ = socket.Close()
			return nil, err
		}
	}
	if err := attach(socket); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return &ZMQConn{socket: socket}, nil
}

func (c *ZMQConn) Recv() (string, error) {
	msg, err := c.socket.Recv(0)
	if err != nil {
		return "", mapErr(err)
	}
	return msg, nil
}

func (c *ZMQConn) Send(payload string) error {
	_, err := c.socket.Send(payload, 0)
	return mapErr(err)
}

func (c *ZMQConn) Close() error {
	return c.socket.Close()
}

// Shutdown terminates the default ZMQ context. It blocks until every socket
// is closed and their lingering messages are flushed, so call it last.
func Shutdown() error {
	return zmq4.Term()
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch zmq4.AsErrno(err) {
	case zmq4.Errno(syscall.EAGAIN):
		return ErrTimeout
	case zmq4.ETERM, zmq4.Errno(syscall.ENOTSOCK):
		return errors.Join(ErrClosed, err)
	}
	return err
}
