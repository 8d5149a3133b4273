package session

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdleConn_ReadTimesOut(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	conn := newIdleConn(a, 50*time.Millisecond)
	start := time.Now()
	_, err := conn.Read(make([]byte, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIdleConn_DeadlineResetsPerCall(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	conn := newIdleConn(a, 200*time.Millisecond)
	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(100 * time.Millisecond)
			_, _ = b.Write([]byte{byte(i)})
		}
	}()

	// Total wait exceeds the idle timeout, each gap does not
	buf := make([]byte, 1)
	for i := 0; i < 3; i++ {
		_, err := conn.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, byte(i), buf[0])
	}
}

func TestIdleConn_ReadCap(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	conn := newIdleConn(a, time.Hour)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))

	_, err := conn.Read(make([]byte, 1))
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "explicit deadline caps the idle bound")

	require.NoError(t, conn.SetReadDeadline(time.Time{}))
	go func() { _, _ = b.Write([]byte{1}) }()
	_, err = conn.Read(make([]byte, 1))
	assert.NoError(t, err)
}

func TestIdleConn_WriteTimesOut(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	conn := newIdleConn(a, 50*time.Millisecond)
	_, err := conn.Write([]byte("nobody reads this"))
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded))
}
