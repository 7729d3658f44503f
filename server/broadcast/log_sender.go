package broadcast

import (
	"context"

	"go.uber.org/zap"
)

// LogSender only logs messages. It's used in dev mode, when no provider is configured.
type LogSender struct {
	Logg *zap.SugaredLogger
}

func (s LogSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Logg.Infof("[whatsapp] to=%v body=%q", to, body)
	return nil
}
