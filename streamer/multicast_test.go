package streamer

import (
	"encoding/binary"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulticastStreamerEmitsBatch(t *testing.T) {
	t.Setenv("BOARDKIT_BATCH_SIZE", "2")

	group := "239.5.5.5"
	port := 17654

	addr := &net.UDPAddr{IP: net.ParseIP(group), Port: port}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadBuffer(1 << 16))

	s, err := newMulticastStreamer(group, strconv.Itoa(port), 2)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	defer s.Destroy()

	s.Stream([]float64{1, 2})
	s.Stream([]float64{3, 4})

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, 4*8, n)

	var got [4]float64
	for i := 0; i < 4; i++ {
		bits := binary.BigEndian.Uint64(buf[i*8 : i*8+8])
		got[i] = math.Float64frombits(bits)
	}
	assert.Equal(t, [4]float64{1, 2, 3, 4}, got)
}
