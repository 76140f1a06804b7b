package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"armlink/internal/kinematics"
	"armlink/internal/telemetry"
)

// Run builds the kinematic chain and telemetry controller from the
// configuration and drives the consumer loop until the context is cancelled.
// The loop stands in for the render loop collaborator: it snapshots the pose
// at the configured tick rate and periodically reports the frame counter.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	chain, err := kinematics.NewChain(config.Arm.Joints())
	if err != nil {
		return fmt.Errorf("building kinematic chain: %w", err)
	}

	options := []func(*telemetry.Controller){telemetry.WithLogger(logger)}
	if config.Serial.Simulate {
		logger.Info("using simulated sensor stream")
		options = append(options, telemetry.WithStream(telemetry.SimulatedStream(simFrameInterval)))
	}

	controller := telemetry.NewController(config.Serial.ControllerConfig(), chain, options...)
	if err = controller.Start(); err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer controller.Stop()

	if controller.Mock() {
		logger.Warn("telemetry is in mock mode, pose stays at zero")
	}

	tick := time.NewTicker(config.Consumer.TickInterval())
	defer tick.Stop()

	stats := time.NewTicker(config.Consumer.StatsInterval())
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-tick.C:
			pose := controller.Current()
			logger.Info("pose",
				slog.Float64("pitch", pose.Pitch),
				slog.Float64("roll", pose.Roll),
				slog.Float64("yaw", pose.Yaw),
				slog.Float64("x", pose.X),
				slog.Float64("y", pose.Y),
				slog.Float64("z", pose.Z))

		case <-stats.C:
			logger.Info(fmt.Sprintf("received %s frames", humanize.Comma(int64(controller.Frames()))))
		}
	}
}
