package canbus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"github.com/Speshl/gorrc_robot/internal/config"
	"github.com/Speshl/gorrc_robot/internal/control"
	"github.com/Speshl/gorrc_robot/internal/trajectory"
)

// Feedback keeps the latest pose, wheel speeds and vision yaw received on
// the bus. Values older than the configured window read as unavailable.
type Feedback struct {
	cfg config.FeedbackConfig
	clk clock.Clock

	lock     sync.RWMutex
	pose     trajectory.Pose
	poseAt   time.Time
	speeds   control.WheelSpeeds
	speedsAt time.Time
	yaw      float64
	yawValid bool
	yawAt    time.Time
}

func NewFeedback(cfg config.FeedbackConfig, clk clock.Clock) *Feedback {
	if clk == nil {
		clk = clock.New()
	}
	return &Feedback{cfg: cfg, clk: clk}
}

// Start reads frames until ctx is done.
func (f *Feedback) Start(ctx context.Context) error {
	log.Printf("starting can feedback on %s\n", f.cfg.CANInterface)
	conn, err := socketcan.DialContext(ctx, "can", f.cfg.CANInterface)
	if err != nil {
		return fmt.Errorf("socketcan dial %s: %w", f.cfg.CANInterface, err)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	recv := socketcan.NewReceiver(conn)
	for recv.Receive() {
		f.HandleFrame(recv.Frame())
	}
	if ctx.Err() != nil {
		log.Printf("stopping can feedback: %s\n", ctx.Err().Error())
		return ctx.Err()
	}
	return fmt.Errorf("can feedback receive failed: %w", recv.Err())
}

// HandleFrame decodes one frame. Unknown ids are ignored.
func (f *Feedback) HandleFrame(frame can.Frame) {
	now := f.clk.Now()
	switch frame.ID {
	case f.cfg.PoseFrameID:
		pose, err := DecodePose(frame)
		if err != nil {
			log.Printf("warning: %s\n", err.Error())
			return
		}
		f.lock.Lock()
		f.pose, f.poseAt = pose, now
		f.lock.Unlock()
	case f.cfg.WheelSpeedFrameID:
		speeds, err := DecodeWheelSpeeds(frame)
		if err != nil {
			log.Printf("warning: %s\n", err.Error())
			return
		}
		f.lock.Lock()
		f.speeds, f.speedsAt = speeds, now
		f.lock.Unlock()
	case f.cfg.VisionYawFrameID:
		yaw, valid, err := DecodeVisionYaw(frame)
		if err != nil {
			log.Printf("warning: %s\n", err.Error())
			return
		}
		f.lock.Lock()
		f.yaw, f.yawValid, f.yawAt = yaw, valid, now
		f.lock.Unlock()
	}
}

func (f *Feedback) Pose() (trajectory.Pose, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.pose, f.fresh(f.poseAt, f.cfg.StaleAfter)
}

func (f *Feedback) WheelSpeeds() (control.WheelSpeeds, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.speeds, f.fresh(f.speedsAt, f.cfg.StaleAfter)
}

// VisionYaw is the target yaw in degrees, absent when no target is seen.
func (f *Feedback) VisionYaw() (float64, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if !f.yawValid || !f.fresh(f.yawAt, f.cfg.VisionYawStaleAfter) {
		return 0, false
	}
	return f.yaw, true
}

func (f *Feedback) fresh(at time.Time, window time.Duration) bool {
	return !at.IsZero() && f.clk.Since(at) <= window
}
