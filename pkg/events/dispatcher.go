package events

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const sinkTimeout = 5 * time.Second

// dispatchActor hands each event to every sink in arrival order.
type dispatchActor struct {
	sinks  []Sink
	logger *zap.Logger
}

func (a *dispatchActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *Event:
		for _, sink := range a.sinks {
			sctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			if err := sink.Handle(sctx, *msg); err != nil {
				a.logger.Warn("Event delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("type", string(msg.Type)),
					zap.String("order_id", msg.OrderID),
					zap.Error(err))
			}
			cancel()
		}

	case *actor.Started:
		a.logger.Info("Event dispatcher started", zap.Int("sinks", len(a.sinks)))

	case *actor.Stopping:
		a.logger.Info("Event dispatcher stopping")
	}
}

// Dispatcher is a Publisher backed by a single actor, so events for the
// whole process are delivered sequentially off the request path.
type Dispatcher struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger, sinks ...Sink) (*Dispatcher, error) {
	system := actor.NewActorSystem()
	log := logger.Named("event-dispatcher")

	props := actor.PropsFromProducer(func() actor.Actor {
		return &dispatchActor{sinks: sinks, logger: log}
	})
	pid, err := system.Root.SpawnNamed(props, "event-dispatcher")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn event dispatcher: %w", err)
	}

	return &Dispatcher{system: system, pid: pid, logger: log}, nil
}

func (d *Dispatcher) Publish(e Event) {
	d.system.Root.Send(d.pid, &e)
}

// Stop drains queued events and stops the actor.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- d.system.Root.PoisonFuture(d.pid).Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("event dispatcher did not stop within %s", timeout)
	}
}
