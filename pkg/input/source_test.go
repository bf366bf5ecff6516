package input

import (
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbehnke/p25framer/pkg/dibit"
)

type recordingReceiver struct {
	mu     sync.Mutex
	dibits []dibit.Dibit
}

func (r *recordingReceiver) Receive(d dibit.Dibit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dibits = append(r.dibits, d)
}

func (r *recordingReceiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dibits)
}

func TestBytesToDibits_UnpacksFourPerByte(t *testing.T) {
	rec := &recordingReceiver{}
	bytesToDibits([]byte{0b11_00_10_01}, rec)

	require.Len(t, rec.dibits, 4)
	require.Equal(t, dibit.New(true, true), rec.dibits[0])
	require.Equal(t, dibit.New(false, false), rec.dibits[1])
	require.Equal(t, dibit.New(true, false), rec.dibits[2])
	require.Equal(t, dibit.New(false, true), rec.dibits[3])
}

func TestUDPSource_DeliversReceivedDatagram(t *testing.T) {
	src := NewUDPSource("127.0.0.1:0", nil)
	rec := &recordingReceiver{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	go func() {
		laddr, _ := net.ResolveUDPAddr("udp", src.Addr)
		conn, err := net.ListenUDP("udp", laddr)
		require.NoError(t, err)
		src.Addr = conn.LocalAddr().String()
		close(ready)
		conn.Close()
	}()
	<-ready
	time.Sleep(10 * time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(ctx, rec) }()
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("udp", src.Addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte{0xFF})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() == 4 }, time.Second, 10*time.Millisecond)

	cancel()
	<-errCh
}

func TestFileSource_ReadsEntireFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "dibits")
	require.NoError(t, err)
	_, err = f.Write([]byte{0x00, 0xFF})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	src := NewFileSource(f.Name(), nil)
	rec := &recordingReceiver{}

	err = src.Run(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, rec.dibits, 8)
}

func TestStdinSource_ReadsUntilEOF(t *testing.T) {
	src := NewStdinSource(nil)
	rec := &recordingReceiver{}

	err := readChunked(context.Background(), strings.NewReader(string([]byte{0xAA, 0x55})), rec)
	_ = src
	require.NoError(t, err)
	require.Len(t, rec.dibits, 8)
}
