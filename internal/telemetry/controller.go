package telemetry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"armlink/internal/kinematics"
)

const (
	// DefaultBaudRate is the line speed of the sensor board.
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds a single serial read; a timeout with no
	// data is not an error.
	DefaultReadTimeout = time.Second

	// DefaultStopTimeout bounds how long Stop waits for the reader to exit
	// before closing the connection under it.
	DefaultStopTimeout = time.Second

	// readBackoff is the pause after a transient read error before the
	// loop retries.
	readBackoff = 100 * time.Millisecond

	// maxLineLen bounds line assembly; a stream that never sends a
	// newline is noise, not a frame.
	maxLineLen = 4096
)

// HUD angle joints. Pitch, roll and yaw are read from single joints for the
// on-screen readout, independent of the full-chain tip position.
const (
	pitchJoint = 0
	yawJoint   = 2
	rollJoint  = 3
)

// listPorts enumerates candidate serial devices; a variable so tests can
// substitute it.
var listPorts = serial.GetPortsList

// Config holds the fixed construction-time settings of a Controller.
type Config struct {
	Port        string        // serial device path; empty means auto-discover
	BaudRate    int           // defaults to DefaultBaudRate
	ReadTimeout time.Duration // defaults to DefaultReadTimeout
	StopTimeout time.Duration // defaults to DefaultStopTimeout
}

// WithLogger sets the logger for the controller.
func WithLogger(logger *slog.Logger) func(c *Controller) {
	return func(c *Controller) {
		c.logger = logger.With(slog.String("component", "telemetry"))
	}
}

// WithStream makes the controller read frames from the given stream instead
// of opening a serial port. Used for the simulated source and in tests.
func WithStream(stream io.ReadCloser) func(c *Controller) {
	return func(c *Controller) {
		c.stream = stream
	}
}

// Controller owns the sensor connection and a single background reader
// goroutine that parses frames and publishes the derived pose. Consumers
// read the latest pose with Current, which never blocks on I/O. When no
// sensor is available the controller degrades to mock mode and Current
// returns the zero pose.
type Controller struct {
	cfg    Config
	chain  *kinematics.Chain
	logger *slog.Logger

	stream io.ReadCloser // injected transport, bypasses the serial port

	mu   sync.Mutex
	pose Pose

	running atomic.Bool
	mock    atomic.Bool
	frames  atomic.Uint64

	stop chan struct{}
	done chan struct{}
	conn io.ReadCloser
}

// NewController creates a controller over the given chain. Zero config
// fields take the package defaults.
func NewController(cfg Config, chain *kinematics.Chain, options ...func(c *Controller)) *Controller {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	c := Controller{
		cfg:    cfg,
		chain:  chain,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Start opens the sensor connection and spawns the reader goroutine. A
// missing or unopenable sensor is not an error: the controller enters mock
// mode and Current keeps returning the zero pose. Start fails only if the
// controller is already running.
func (c *Controller) Start() error {
	if c.running.Load() {
		return errors.New("controller is already running")
	}

	conn := c.stream
	if conn == nil {
		conn = c.openPort()
	}
	if conn == nil {
		c.mock.Store(true)
		c.logger.Warn("no sensor available, running in mock mode")
		return nil
	}

	c.conn = conn
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.running.Store(true)

	go c.readLoop(conn)

	c.logger.Info("telemetry started")
	return nil
}

// openPort resolves and opens the serial device. Every failure path returns
// nil: connection errors degrade to mock mode, they never propagate to the
// consumer.
func (c *Controller) openPort() io.ReadCloser {
	name := c.cfg.Port
	if name == "" {
		ports, err := listPorts()
		if err != nil {
			c.logger.Error(fmt.Sprintf("listing serial ports: %s", err))
			return nil
		}
		if len(ports) == 0 {
			c.logger.Warn("no serial ports found")
			return nil
		}
		name = ports[0]
		c.logger.Info("auto-selected serial port", slog.String("port", name))
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: c.cfg.BaudRate})
	if err != nil {
		c.logger.Error(fmt.Sprintf("opening serial port: %s", err), slog.String("port", name))
		return nil
	}
	if err = port.SetReadTimeout(c.cfg.ReadTimeout); err != nil {
		port.Close()
		c.logger.Error(fmt.Sprintf("setting read timeout: %s", err), slog.String("port", name))
		return nil
	}

	return port
}

// Stop signals the reader to terminate, waits up to the stop timeout for it
// to exit and closes the connection, which also unblocks a pending read.
// Stop is idempotent and safe to call before Start or in mock mode.
func (c *Controller) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	close(c.stop)
	select {
	case <-c.done:
	case <-time.After(c.cfg.StopTimeout):
		c.logger.Warn("reader did not exit in time, closing connection")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Warn(fmt.Sprintf("closing connection: %s", err))
	}

	c.logger.Info("telemetry stopped")
}

// Current returns a copy of the latest published pose. It never blocks on
// I/O; until the first frame arrives, and always in mock mode, it returns
// the zero pose.
func (c *Controller) Current() Pose {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pose
}

// Mock reports whether Start fell back to mock mode.
func (c *Controller) Mock() bool {
	return c.mock.Load()
}

// Running reports whether the reader goroutine is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Frames returns the number of frames published so far.
func (c *Controller) Frames() uint64 {
	return c.frames.Load()
}

// readLoop reads the connection until the stop signal, assembling lines and
// publishing one pose per frame. Frames are published strictly in arrival
// order. Transient read errors are logged and retried after a short pause;
// only the stop signal terminates the loop.
func (c *Controller) readLoop(conn io.Reader) {
	defer close(c.done)

	buf := make([]byte, 256)
	line := make([]byte, 0, 256)

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn(fmt.Sprintf("read error: %s", err))
			}
			if !c.pause() {
				return
			}
			continue
		}
		if n == 0 {
			continue // read timeout, no data
		}

		for _, b := range buf[:n] {
			switch b {
			case '\n':
				c.handleLine(string(line))
				line = line[:0]
			case '\r':
			default:
				if len(line) >= maxLineLen {
					line = line[:0] // runaway line, drop it
				}
				line = append(line, b)
			}
		}
	}
}

// pause sleeps for the retry backoff; it returns false if the stop signal
// arrives first.
func (c *Controller) pause() bool {
	select {
	case <-c.stop:
		return false
	case <-time.After(readBackoff):
		return true
	}
}

// handleLine decodes, filters and parses one line, then publishes the
// derived pose. The critical section is the struct assignment only.
func (c *Controller) handleLine(line string) {
	line = strings.ToValidUTF8(line, "")
	if !isFrame(line) {
		return
	}

	pose := c.derive(frameFromReadings(parseReadings(line)))

	c.mu.Lock()
	c.pose = pose
	c.mu.Unlock()

	c.frames.Add(1)
}

// derive builds the published pose from one frame: HUD angles from the three
// designated joints, tip position from the full chain.
func (c *Controller) derive(frame RawFrame) Pose {
	var angles [kinematics.NumJoints]float64
	for i := range angles {
		angles[i] = c.chain.Angle(i, frame.Reading(i))
	}
	x, y, z := c.chain.Tip(angles)

	return Pose{
		Pitch: angles[pitchJoint],
		Roll:  angles[rollJoint],
		Yaw:   angles[yawJoint],
		X:     x,
		Y:     y,
		Z:     z,
	}
}
