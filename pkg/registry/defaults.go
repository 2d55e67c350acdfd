package registry

import (
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/actions/condition"
	"github.com/vetsuite/vetflow/pkg/actions/recordmutation"
	"github.com/vetsuite/vetflow/pkg/actions/sendemail"
	"github.com/vetsuite/vetflow/pkg/actions/sendnotification"
	"github.com/vetsuite/vetflow/pkg/actions/wait"
	"github.com/vetsuite/vetflow/pkg/actions/webhook"
	"github.com/vetsuite/vetflow/pkg/queue"
)

// Deps carries the collaborators the built-in actions need. Nil fields fall
// back to log-only or in-memory implementations where one exists.
type Deps struct {
	Queue    queue.Queue
	Sender   sendemail.Sender
	Notifier sendnotification.Notifier
	Records  recordmutation.RecordStore
}

// NewDefaultRegistry registers every built-in action factory. A shared
// in-memory record store is created when none is supplied so create and
// update actions within one process see the same records.
func NewDefaultRegistry(logger *slog.Logger, deps Deps) *Registry {
	if deps.Records == nil {
		deps.Records = recordmutation.NewMemoryStore()
	}

	r := NewRegistry(logger)

	r.RegisterAction(sendemail.NewFactory(deps.Sender))
	r.RegisterAction(sendnotification.NewFactory(deps.Notifier))
	r.RegisterAction(recordmutation.NewCreateFactory(deps.Records))
	r.RegisterAction(recordmutation.NewUpdateFactory(deps.Records))
	r.RegisterAction(webhook.NewFactory(deps.Queue))
	r.RegisterAction(wait.NewFactory())
	r.RegisterAction(condition.NewFactory())

	return r
}
