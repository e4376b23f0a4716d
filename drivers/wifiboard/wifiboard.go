// Package wifiboard implements the Wifi-Shield transport sibling of the
// cyton serial family: an identical 33-byte frame, but delivered over a
// UDP socket server the board connects out to instead of a virtual
// serial port. Frame decoding is shared with drivers/cyton rather than
// duplicated, mirroring how the original's CytonWifi board inherits its
// frame layout from the plain Cyton board.
package wifiboard

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/drivers/cyton"
	"github.com/c360/boardkit/drivers/timesync"
	"github.com/c360/boardkit/retry"
	"github.com/c360/boardkit/status"
)

// udpConn is the minimal surface this driver needs from *net.UDPConn,
// narrowed so tests can substitute an in-memory fake.
type udpConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	Write(b []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// Config configures a Wifi-Shield driver instance.
type Config struct {
	// ListenAddress is the local UDP address the board's shield streams
	// to, e.g. "0.0.0.0:3000". The shield itself is configured out of
	// band (its own HTTP API) to point at this host:port.
	ListenAddress string
	Deps          board.Dependencies

	// Listen overrides socket construction; tests substitute a fake.
	Listen func(address string) (udpConn, error)
}

func listenUDP(address string) (udpConn, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Driver implements board.Driver for the Wifi-Shield UDP-transport board.
type Driver struct {
	*board.Base

	cfg  Config
	conn udpConn

	mu       sync.Mutex
	gains    [8]float64
	readStop context.CancelFunc
	readDone chan struct{}

	sync *timesync.Estimator
}

func New(cfg Config) *Driver {
	if cfg.Listen == nil {
		cfg.Listen = listenUDP
	}
	d := &Driver{cfg: cfg, sync: timesync.NewEstimator()}
	for i := range d.gains {
		d.gains[i] = 24.0
	}
	d.Base = board.NewBase(board.Descriptors[board.WifiID], cfg.Deps)
	return d
}

func (d *Driver) PrepareSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Base.Flags().Initialized {
		return nil
	}
	conn, err := d.cfg.Listen(d.cfg.ListenAddress)
	if err != nil {
		return board.WithStatus(status.UnableToOpenPortError, classify.WrapTransient(err, "wifiboard", "PrepareSession", "open udp socket"))
	}
	d.conn = conn
	return d.Base.Prepare(450_000) // 30 minutes at 250Hz
}

func (d *Driver) StartStream(bufferSize int, streamerURI string) error {
	d.mu.Lock()
	if d.conn == nil {
		d.mu.Unlock()
		return board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if bufferSize > 0 {
		if err := d.Base.Resize(bufferSize); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.readStop = cancel
	d.readDone = make(chan struct{})
	d.mu.Unlock()

	if err := d.Base.BeginStream(streamerURI); err != nil {
		cancel()
		return err
	}
	go d.readLoop(ctx)
	return nil
}

func (d *Driver) StopStream() error {
	d.mu.Lock()
	stop, done := d.readStop, d.readDone
	d.mu.Unlock()
	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
	return d.Base.EndStream()
}

func (d *Driver) ReleaseSession() error {
	_ = d.StopStream()
	d.mu.Lock()
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
	d.mu.Unlock()
	return d.Base.ReleaseSession()
}

// ConfigBoard writes a shield command straight onto the UDP socket, the
// same "d"/gain commands the serial Cyton family accepts. The command is
// written as is: it is not checked against the configtracker grammar, and
// gain changes are not tracked, so decoded samples always use a gain of 24.
func (d *Driver) ConfigBoard(command string) (string, error) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return "", board.WithStatus(status.BoardNotReadyError, classify.ErrNotStarted)
	}
	if _, err := conn.Write([]byte(command)); err != nil {
		return "", board.WithStatus(status.BoardWriteError, classify.WrapTransient(err, "wifiboard", "ConfigBoard", "write command"))
	}
	return "", nil
}

// readLoop polls the UDP socket until ctx is cancelled. A read deadline
// keeps each poll bounded so ctx cancellation stays responsive; sustained
// failure to get a full frame (the shield stopped sending, or the socket
// itself errored) is treated as a dropped transport and backed off with
// exponential backoff + jitter instead of spinning a tight poll loop, the
// same pattern the serial-transport families use for their reads.
func (d *Driver) readLoop(ctx context.Context) {
	defer close(d.readDone)

	buf := make([]byte, cyton.PackageSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := retry.Do(ctx, retry.Persistent(), func() error {
			_ = d.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
			n, _, err := d.conn.ReadFromUDP(buf)
			if err != nil {
				return err
			}
			if n != cyton.PackageSize {
				return classify.ErrConnectionTimeout
			}
			return nil
		}); err != nil {
			return
		}
		row, ok := d.decodeFrame(buf)
		if !ok {
			continue
		}
		_ = d.Base.PushRow(board.PresetDefault, row)
	}
}

func (d *Driver) decodeFrame(b []byte) ([]float64, bool) {
	schema, _ := d.Base.Descriptor().Preset(board.PresetDefault)
	d.mu.Lock()
	gains := d.gains
	d.mu.Unlock()
	row, ok := cyton.DecodeFrame(b, schema, gains)
	if !ok {
		return nil, false
	}
	row[schema.TimestampChannel] = d.sync.Apply(timesync.Now())
	return row, true
}
