package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/notify"
)

// StartNotificationWorker delivers queued notifications until ctx is done,
// then sends whatever is still queued and exits. Each send keeps its own
// timeout and is not cut short by ctx. The returned channel closes once the
// worker has exited.
func StartNotificationWorker(ctx context.Context, dispatcher *notify.Dispatcher, log logrus.FieldLogger) <-chan struct{} {
	done := make(chan struct{})
	if dispatcher == nil {
		log.Warn("notification worker disabled: dispatcher not configured")
		close(done)
		return done
	}

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				drained := drain(sendCtx, dispatcher)
				log.WithField("drained", drained).Info("notification worker stopped")
				return
			case n := <-dispatcher.Queue():
				dispatcher.Deliver(sendCtx, n)
			}
		}
	}()
	return done
}

func drain(ctx context.Context, dispatcher *notify.Dispatcher) int {
	count := 0
	for {
		select {
		case n := <-dispatcher.Queue():
			dispatcher.Deliver(ctx, n)
			count++
		default:
			return count
		}
	}
}
