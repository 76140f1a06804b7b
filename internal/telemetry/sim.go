package telemetry

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"armlink/internal/kinematics"
)

// simSweepPeriod is the number of frames one full joint sweep takes.
const simSweepPeriod = 200

// SimulatedStream returns a stream emitting well-formed sensor frames at the
// given interval, each joint sweeping its raw range on a phase-shifted sine
// so the arm appears to move. Closing the stream stops the generator.
func SimulatedStream(interval time.Duration) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var sb strings.Builder
		for step := 0; ; step++ {
			<-ticker.C

			sb.Reset()
			phase := 2 * math.Pi * float64(step) / simSweepPeriod
			for i := 0; i < kinematics.NumJoints; i++ {
				if i > 0 {
					sb.WriteByte(' ')
				}
				raw := int(512 + 511*math.Sin(phase+float64(i)*math.Pi/3))
				fmt.Fprintf(&sb, "POT%d:%d", i, raw)
			}
			sb.WriteByte('\n')

			if _, err := io.WriteString(pw, sb.String()); err != nil {
				return // reader side closed
			}
		}
	}()

	return pr
}
