package notify

import (
	"context"

	logx "acadsched/pkg/logx"
)

// consoleNotifier writes reminders through the structured log. Permission is
// always granted; it is the fallback backend.
type consoleNotifier struct {
	log logx.Logger
}

func newConsole(log logx.Logger) *consoleNotifier {
	return &consoleNotifier{log: log}
}

func (c *consoleNotifier) Send(_ context.Context, n Notification) error {
	opts := Display(n)
	c.log.Info("reminder",
		logx.String("kind", string(n.Kind)),
		logx.String("title", n.Title),
		logx.String("body", n.Body),
		logx.Bool("silent", opts.Silent),
	)
	return nil
}

func (c *consoleNotifier) CheckPermission() Permission { return PermissionGranted }

func (c *consoleNotifier) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}
