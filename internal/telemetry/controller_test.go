package telemetry

import (
	"bufio"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"armlink/internal/kinematics"
)

const frameLine = "POT0:512 POT1:512 POT2:256 POT3:768 POT4:100 POT5:900"

func testChain(t *testing.T) *kinematics.Chain {
	t.Helper()

	chain, err := kinematics.NewChain(kinematics.DefaultJoints(kinematics.DefaultLengths))
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	return chain
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestControllerPublishesPose(t *testing.T) {
	chain := testChain(t)
	pr, pw := io.Pipe()
	c := NewController(Config{StopTimeout: 100 * time.Millisecond}, chain, WithStream(pr))

	if err := c.Start(); err != nil {
		t.Fatalf("Failed to start controller: %v", err)
	}
	defer c.Stop()

	go pw.Write([]byte(frameLine + "\n"))
	waitFor(t, time.Second, func() bool { return c.Frames() == 1 })

	pose := c.Current()
	if math.Abs(pose.Pitch-180) > 0.1 || math.Abs(pose.Roll-270) > 0.1 || math.Abs(pose.Yaw-90) > 0.1 {
		t.Errorf("Expected angles (180, 270, 90), got (%f, %f, %f)", pose.Pitch, pose.Roll, pose.Yaw)
	}

	// Tip position must match the chain applied to all six scaled readings.
	raw := [6]int{512, 512, 256, 768, 100, 900}
	var angles [kinematics.NumJoints]float64
	for i, r := range raw {
		angles[i] = chain.Angle(i, r)
	}
	x, y, z := chain.Tip(angles)
	if pose.X != x || pose.Y != y || pose.Z != z {
		t.Errorf("Expected tip (%f, %f, %f), got (%f, %f, %f)", x, y, z, pose.X, pose.Y, pose.Z)
	}

	pw.Close()
}

func TestControllerDiscardsNoise(t *testing.T) {
	chain := testChain(t)
	pr, pw := io.Pipe()
	c := NewController(Config{StopTimeout: 100 * time.Millisecond}, chain, WithStream(pr))

	if err := c.Start(); err != nil {
		t.Fatalf("Failed to start controller: %v", err)
	}
	defer c.Stop()

	go func() {
		pw.Write([]byte("Booting sensor board v1.2\r\n"))
		pw.Write([]byte("\xff\xfe garbage bytes, no marker\n"))
		pw.Write([]byte("POT0:abc POT1:512 junk\n")) // marker, malformed POT0
	}()
	waitFor(t, time.Second, func() bool { return c.Frames() == 1 })

	// Only the marker line published; the malformed token defaulted to zero.
	pose := c.Current()
	if pose.Pitch != 0 {
		t.Errorf("Expected pitch 0 from dropped POT0 token, got %f", pose.Pitch)
	}
	if math.Abs(pose.Roll-0) > 0.1 || math.Abs(pose.Yaw-0) > 0.1 {
		t.Errorf("Expected roll/yaw 0 from missing keys, got (%f, %f)", pose.Roll, pose.Yaw)
	}

	var angles [kinematics.NumJoints]float64
	angles[1] = chain.Angle(1, 512)
	x, y, z := chain.Tip(angles)
	if pose.X != x || pose.Y != y || pose.Z != z {
		t.Errorf("Expected tip (%f, %f, %f), got (%f, %f, %f)", x, y, z, pose.X, pose.Y, pose.Z)
	}

	pw.Close()
}

func TestControllerSnapshotConsistency(t *testing.T) {
	chain := testChain(t)
	c := NewController(Config{}, chain)

	lineA := frameLine
	lineB := "POT0:100 POT1:200 POT2:300 POT3:400 POT4:500 POT5:600"

	c.handleLine(lineA)
	poseA := c.Current()
	c.handleLine(lineB)
	poseB := c.Current()

	done := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				if pose := c.Current(); pose != poseA && pose != poseB {
					t.Errorf("Observed torn pose: %+v", pose)
					return
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		if i%2 == 0 {
			c.handleLine(lineA)
		} else {
			c.handleLine(lineB)
		}
	}
	close(done)
	wg.Wait()
}

func TestControllerLifecycle(t *testing.T) {
	chain := testChain(t)

	t.Run("stop before start", func(t *testing.T) {
		c := NewController(Config{}, chain)
		c.Stop()
		c.Stop()
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		pr, pw := io.Pipe()
		c := NewController(Config{StopTimeout: 50 * time.Millisecond}, chain, WithStream(pr))

		if err := c.Start(); err != nil {
			t.Fatalf("Failed to start controller: %v", err)
		}
		if !c.Running() {
			t.Error("Expected controller to be running after Start")
		}

		pw.Close()
		c.Stop()
		c.Stop()

		if c.Running() {
			t.Error("Expected controller to be stopped")
		}
	})

	t.Run("start while running fails", func(t *testing.T) {
		pr, pw := io.Pipe()
		c := NewController(Config{StopTimeout: 50 * time.Millisecond}, chain, WithStream(pr))

		if err := c.Start(); err != nil {
			t.Fatalf("Failed to start controller: %v", err)
		}
		if err := c.Start(); err == nil {
			t.Error("Expected second Start to fail")
		}

		pw.Close()
		c.Stop()
	})
}

func TestControllerMockMode(t *testing.T) {
	original := listPorts
	listPorts = func() ([]string, error) { return nil, nil }
	defer func() { listPorts = original }()

	c := NewController(Config{}, testChain(t))
	if err := c.Start(); err != nil {
		t.Fatalf("Start must not fail without a sensor: %v", err)
	}

	if !c.Mock() {
		t.Error("Expected mock mode with no ports available")
	}
	if c.Running() {
		t.Error("Expected no reader in mock mode")
	}
	if pose := c.Current(); pose != (Pose{}) {
		t.Errorf("Expected zero pose in mock mode, got %+v", pose)
	}

	c.Stop() // must be a no-op
}

func TestControllerOverSimulatedStream(t *testing.T) {
	c := NewController(
		Config{StopTimeout: 100 * time.Millisecond},
		testChain(t),
		WithStream(SimulatedStream(time.Millisecond)),
	)

	if err := c.Start(); err != nil {
		t.Fatalf("Failed to start controller: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Frames() >= 3 })
	c.Stop()
}

func TestSimulatedStreamFormat(t *testing.T) {
	stream := SimulatedStream(time.Millisecond)
	defer stream.Close()

	line, err := bufio.NewReader(stream).ReadString('\n')
	if err != nil {
		t.Fatalf("Failed to read simulated line: %v", err)
	}
	if !isFrame(line) {
		t.Fatalf("Simulated line lacks frame marker: %q", line)
	}

	readings := parseReadings(line)
	for _, key := range jointKeys {
		value, ok := readings[key]
		if !ok {
			t.Errorf("Simulated frame missing %s: %q", key, line)
			continue
		}
		if value < 0 || value > 1023 {
			t.Errorf("Simulated %s out of range: %d", key, value)
		}
	}
}
