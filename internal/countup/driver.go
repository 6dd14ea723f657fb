package countup

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultFrameInterval paces frames at roughly 60 per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Driver runs an Animator on a clock-paced frame loop. At most one loop is
// active per Driver; every reconfiguration and Stop cancels and joins the
// running loop before anything else happens.
type Driver struct {
	clock    clock.Clock
	interval time.Duration
	onFrame  func(float64)

	mu   sync.Mutex // guards anim
	anim *Animator

	driveMu sync.Mutex // serializes Drive/Stop and guards cancel, done
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDriver creates a driver. onFrame, if set, receives every displayed
// value, including the immediate value after each Drive. It runs on the
// frame loop and must not call Drive or Stop on the same Driver, which
// would wait for that loop to exit.
func NewDriver(clk clock.Clock, interval time.Duration, onFrame func(float64)) *Driver {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Driver{
		clock:    clk,
		interval: interval,
		onFrame:  onFrame,
		anim:     New(),
	}
}

// Drive reconfigures the animation, starting a frame loop when one is
// needed.
func (d *Driver) Drive(target float64, duration time.Duration, enabled bool) {
	d.driveMu.Lock()
	defer d.driveMu.Unlock()

	d.halt()

	d.mu.Lock()
	run := d.anim.Drive(target, duration, enabled, d.clock.Now())
	value := d.anim.Value()
	d.mu.Unlock()

	d.emit(value)

	if run {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		d.cancel = cancel
		d.done = done
		go d.loop(ctx, d.clock.Ticker(d.interval), done)
	}
}

// Stop cancels any running loop. No frame callback runs after Stop
// returns.
func (d *Driver) Stop() {
	d.driveMu.Lock()
	defer d.driveMu.Unlock()
	d.halt()
}

// Done returns a channel closed once the current loop has exited. With no
// loop running it is already closed.
func (d *Driver) Done() <-chan struct{} {
	d.driveMu.Lock()
	defer d.driveMu.Unlock()
	if d.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return d.done
}

// Value returns the displayed value.
func (d *Driver) Value() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.anim.Value()
}

// State returns the animator state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.anim.State()
}

// halt must be called with driveMu held.
func (d *Driver) halt() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
}

func (d *Driver) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			value, running := d.anim.Step(d.clock.Now())
			d.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			d.emit(value)
			if !running {
				return
			}
		}
	}
}

func (d *Driver) emit(value float64) {
	if d.onFrame != nil {
		d.onFrame(value)
	}
}
