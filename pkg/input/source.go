// Package input reads a raw dibit stream from a UDP socket, a file,
// or stdin and feeds it to a Framer one symbol at a time. The UDP
// reader uses a short read deadline and checks the context between
// reads, feeding a single raw-byte consumer.
package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/dbehnke/p25framer/pkg/dibit"
	"github.com/dbehnke/p25framer/pkg/logger"
)

// Receiver is satisfied by *framer.Framer; kept narrow so this
// package doesn't import framer and create a cycle.
type Receiver interface {
	Receive(d dibit.Dibit)
}

// Source reads a dibit stream until ctx is canceled or the
// underlying stream ends.
type Source interface {
	Run(ctx context.Context, dest Receiver) error
}

// bytesToDibits unpacks one byte into 4 dibits, most-significant pair
// first: bits [7:6], [5:4], [3:2], [1:0].
func bytesToDibits(buf []byte, dest Receiver) {
	for _, b := range buf {
		for shift := 6; shift >= 0; shift -= 2 {
			bit1 := (b>>uint(shift+1))&1 == 1
			bit2 := (b>>uint(shift))&1 == 1
			dest.Receive(dibit.New(bit1, bit2))
		}
	}
}

// UDPSource reads raw dibit-packed datagrams from a UDP socket.
type UDPSource struct {
	Addr string
	log  *logger.Logger
}

// NewUDPSource creates a UDPSource bound to addr (host:port).
func NewUDPSource(addr string, log *logger.Logger) *UDPSource {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	return &UDPSource{Addr: addr, log: log.WithComponent("input.udp")}
}

// Run listens on s.Addr and feeds every received datagram's dibits to
// dest until ctx is canceled.
func (s *UDPSource) Run(ctx context.Context, dest Receiver) error {
	laddr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("input: resolve udp addr: %w", err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("input: listen udp: %w", err)
	}
	defer conn.Close()

	s.log.Info("listening for dibit stream", logger.String("addr", conn.LocalAddr().String()))

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.log.Error("udp read failed", logger.Error(err))
			continue
		}
		bytesToDibits(buf[:n], dest)
	}
}

// FileSource reads a dibit-packed file once, top to bottom.
type FileSource struct {
	Path string
	log  *logger.Logger
}

// NewFileSource creates a FileSource reading from path.
func NewFileSource(path string, log *logger.Logger) *FileSource {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	return &FileSource{Path: path, log: log.WithComponent("input.file")}
}

// Run reads the entire file, in chunks, feeding dibits to dest. It
// returns nil at end of file rather than io.EOF.
func (s *FileSource) Run(ctx context.Context, dest Receiver) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("input: open file: %w", err)
	}
	defer f.Close()

	return readChunked(ctx, f, dest)
}

// StdinSource reads a dibit-packed byte stream from stdin until EOF
// or ctx cancellation.
type StdinSource struct {
	log *logger.Logger
}

// NewStdinSource creates a StdinSource.
func NewStdinSource(log *logger.Logger) *StdinSource {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	return &StdinSource{log: log.WithComponent("input.stdin")}
}

// Run reads from os.Stdin until EOF or ctx cancellation.
func (s *StdinSource) Run(ctx context.Context, dest Receiver) error {
	return readChunked(ctx, os.Stdin, dest)
}

func readChunked(ctx context.Context, r io.Reader, dest Receiver) error {
	reader := bufio.NewReaderSize(r, 4096)
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			bytesToDibits(buf[:n], dest)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("input: read: %w", err)
		}
	}
}
