package entitlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
	redisclient "github.com/NeuroShelf10/Neuroestante/pkg/redis"
)

type publisher interface {
	Publish(ctx context.Context, channel string, payload string) error
	AccountChannel(accountID string) string
}

// Notifier broadcasts entitlement changes for an account so open access
// streams can re-evaluate immediately instead of waiting for a poll.
type Notifier struct {
	pub  publisher
	logg *logger.Logger
}

// NewNotifier builds a notifier over Redis pub/sub.
func NewNotifier(pub publisher, logg *logger.Logger) *Notifier {
	return &Notifier{pub: pub, logg: logg}
}

// NotifyChanged publishes a change signal for the account. Failures are
// logged but never returned: a missed signal only delays the next poll.
func (n *Notifier) NotifyChanged(ctx context.Context, accountID uuid.UUID) {
	if n == nil || n.pub == nil {
		return
	}
	channel := n.pub.AccountChannel(accountID.String())
	if err := n.pub.Publish(ctx, channel, "changed"); err != nil && n.logg != nil {
		n.logg.Warn(ctx, "publishing entitlement change signal failed: "+err.Error())
	}
}

// Watcher subscribes to one account's change channel and surfaces signals
// as a Go channel. Used by the SSE access stream.
type Watcher struct {
	client *redisclient.Client
	logg   *logger.Logger
}

// NewWatcher builds a watcher over the shared Redis client.
func NewWatcher(client *redisclient.Client, logg *logger.Logger) *Watcher {
	return &Watcher{client: client, logg: logg}
}

// Watch returns a channel that receives one value per change signal for the
// account. The channel closes when ctx is canceled.
func (w *Watcher) Watch(ctx context.Context, accountID uuid.UUID) (<-chan struct{}, error) {
	sub := w.client.Subscribe(ctx, w.client.AccountChannel(accountID.String()))

	signals := make(chan struct{}, 1)
	go func() {
		defer close(signals)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				// collapse bursts into a single pending signal
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()
	return signals, nil
}
