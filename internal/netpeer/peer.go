// Package netpeer implements the TCP transport for network-dispatched
// rules: a listener that decodes incoming envelopes and feeds them into a
// router's mailbox, and a dialer-backed Sender that encodes outbound
// tuples and writes them to the destination's TCP connection.
//
// Delivery is at-most-once, per spec §6/§7: a failed send is logged and
// the derivation is dropped, with no retry or acknowledgement layer.
package netpeer

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/metrics"
	"github.com/stranddb/strand/internal/wire"
)

var netLog = log.New(log.Writer(), "[netpeer] ", log.LstdFlags)

// Submitter matches engine.Router's Submit method — netpeer depends only
// on this narrow interface so it never needs to import internal/engine.
type Submitter interface {
	Submit(wi domain.WorkItem) error
}

// Listener accepts inbound TCP connections, decodes length-prefixed
// envelope frames from each until it closes, resolves each envelope's table
// against cat, and submits it to router.
type Listener struct {
	cat    *catalog.Catalog
	router Submitter
	ln     net.Listener
}

// Listen opens a TCP listener on addr ("" host selects all interfaces;
// port 0 selects an ephemeral port, per spec §6's configuration option).
func Listen(addr string, cat *catalog.Catalog, router Submitter) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netpeer: listen %s: %w", addr, err)
	}
	return &Listener{cat: cat, router: router, ln: ln}, nil
}

// Addr returns the bound address, useful when addr was ":0".
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve accepts connections until ctx is canceled or the listener closes.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("netpeer: accept: %w", err)
			}
		}
		go l.handle(conn)
	}
}

// handle reads envelopes off conn until it closes or errors — a sender
// dials once per destination and reuses the connection for every
// subsequent tuple, so one frame per connection would drop everything
// after the first.
func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()

	for {
		b, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				netLog.Printf("read frame from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
		l.deliver(b)
	}
}

func (l *Listener) deliver(b []byte) {
	env, err := wire.Decode(b)
	if err != nil {
		netLog.Printf("decode envelope: %v", err)
		metrics.EnvelopesReceived.WithLabelValues("decode_error").Inc()
		return
	}

	store, ok := l.cat.Table(env.Table)
	if !ok {
		netLog.Printf("dropping envelope for unknown table %q", env.Table)
		metrics.EnvelopesReceived.WithLabelValues("unknown_table").Inc()
		return
	}
	schema := store.Def().Schema
	if schema.Name != env.SchemaTag {
		netLog.Printf("dropping envelope: schema tag %q does not match local schema %q for table %q", env.SchemaTag, schema.Name, env.Table)
		metrics.EnvelopesReceived.WithLabelValues("schema_mismatch").Inc()
		return
	}
	if len(env.Columns) != schema.TupleSize() {
		netLog.Printf("dropping envelope for table %q: arity mismatch", env.Table)
		metrics.EnvelopesReceived.WithLabelValues("arity_mismatch").Inc()
		return
	}

	pool, ok := l.cat.Pool(schema.Name)
	if !ok {
		netLog.Printf("no tuple pool for schema %q", schema.Name)
		metrics.EnvelopesReceived.WithLabelValues("no_pool").Inc()
		return
	}
	t := pool.Loan()
	for i, d := range env.Columns {
		t.Set(i, d)
	}
	if err := l.router.Submit(domain.WorkItem{ID: env.ID, Table: env.Table, Tuple: t, Polarity: env.Polarity}); err != nil {
		netLog.Printf("submit envelope for table %q: %v", env.Table, err)
		t.Unpin()
		metrics.EnvelopesReceived.WithLabelValues("submit_error").Inc()
		return
	}
	metrics.EnvelopesReceived.WithLabelValues("ok").Inc()
}

// Sender dials peers by address and writes one length-prefixed envelope
// per Send call. Connections are cached per destination and reused.
type Sender struct {
	mu    sync.Mutex
	conns map[string]net.Conn
}

// NewSender returns an empty connection-caching Sender.
func NewSender() *Sender {
	return &Sender{conns: make(map[string]net.Conn)}
}

// Send implements domain.Sender. dest must be a KindString datum holding
// a "host:port" address.
func (s *Sender) Send(dest domain.Datum, tableName string, tuple *domain.Tuple, polarity domain.Polarity) error {
	if dest.Kind() != domain.KindString {
		return fmt.Errorf("netpeer: location specifier must be a string address, got %v", dest.Kind())
	}
	addr := dest.AsString()

	cols := make([]domain.Datum, tuple.Len())
	for i := 0; i < tuple.Len(); i++ {
		cols[i] = tuple.Get(i)
	}
	env := wire.Envelope{
		ID:          uuid.New(),
		Destination: addr,
		Table:       tableName,
		SchemaTag:   tuple.Schema().Name,
		Polarity:    polarity,
		Columns:     cols,
	}
	b, err := wire.Encode(env)
	if err != nil {
		metrics.EnvelopesSent.WithLabelValues("encode_error").Inc()
		return fmt.Errorf("netpeer: encode: %w", err)
	}

	conn, err := s.dial(addr)
	if err != nil {
		metrics.EnvelopesSent.WithLabelValues("dial_error").Inc()
		return err
	}
	if err := writeFrame(conn, b); err != nil {
		s.drop(addr)
		metrics.EnvelopesSent.WithLabelValues("write_error").Inc()
		return fmt.Errorf("netpeer: write to %s: %w", addr, err)
	}
	metrics.EnvelopesSent.WithLabelValues("ok").Inc()
	return nil
}

func (s *Sender) dial(addr string) (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.conns[addr]; ok {
		return conn, nil
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netpeer: dial %s: %w", addr, err)
	}
	s.conns[addr] = conn
	return conn, nil
}

func (s *Sender) drop(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.conns[addr]; ok {
		conn.Close()
		delete(s.conns, addr)
	}
}

// Close closes every cached outbound connection.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, conn := range s.conns {
		conn.Close()
		delete(s.conns, addr)
	}
}

func writeFrame(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
