package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	logx "acadsched/pkg/logx"
)

// telegramNotifier delivers reminders to one chat. The bot is connected
// lazily on the first permission request or send, so a missing/bad token
// degrades to permission-denied instead of failing startup.
type telegramNotifier struct {
	cfg Config
	log logx.Logger

	limiter *rate.Limiter

	mu   sync.Mutex
	bot  *tele.Bot
	perm Permission
}

func newTelegram(cfg Config, log logx.Logger) *telegramNotifier {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &telegramNotifier{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		perm:    PermissionProvisional,
	}
}

func (t *telegramNotifier) Send(ctx context.Context, n Notification) error {
	bot, perm := t.connect()
	if !perm.Allowed() || bot == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if Display(n).Silent {
		opts.DisableNotification = true
	}

	text := "*" + n.Title + "*\n" + n.Body
	opts.ParseMode = tele.ModeMarkdown

	_, err := bot.Send(tele.ChatID(t.cfg.Telegram.ChatID), text, opts)
	if err != nil {
		t.log.Warn("telegram send failed", logx.Err(err), logx.Int64("chat_id", t.cfg.Telegram.ChatID))
	}
	return err
}

func (t *telegramNotifier) CheckPermission() Permission {
	t.mu.Lock()
	defer t.mu.Unlock()
	if strings.TrimSpace(t.cfg.Telegram.Token) == "" || t.cfg.Telegram.ChatID == 0 {
		return PermissionDenied
	}
	return t.perm
}

func (t *telegramNotifier) RequestPermission(ctx context.Context) (Permission, error) {
	_, perm := t.connect()
	return perm, nil
}

// connect builds the bot client on first use. The result is cached either
// way; a failed probe pins permission to denied until restart/reconfigure.
func (t *telegramNotifier) connect() (*tele.Bot, Permission) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, t.perm
	}
	if strings.TrimSpace(t.cfg.Telegram.Token) == "" || t.cfg.Telegram.ChatID == 0 {
		t.perm = PermissionDenied
		return nil, t.perm
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  t.cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		t.log.Warn("telegram bot init failed", logx.Err(err))
		t.perm = PermissionDenied
		return nil, t.perm
	}
	t.bot = bot
	t.perm = PermissionGranted
	return t.bot, t.perm
}
