package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/inventory"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/setting"
	"github.com/foodian-app/foodian/internal/stats"
	"github.com/foodian-app/foodian/internal/store"
)

// maxListed is the number of item names spelled out in one notification.
const maxListed = 3

// Scheduler sends expiry alerts at each member's chosen time of day.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	push     *store.PushStore
	items    *store.ItemStore
	settings *store.SettingsStore
	events   *store.EventStore
	cache    cache.Cache
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	// last is the previous tick. Only the tick loop touches it.
	last time.Time
}

// NewScheduler builds a scheduler. c may be nil; when set, recorded alerts
// drop the family's cached statistics.
func NewScheduler(sender Sender, pushStore *store.PushStore, itemStore *store.ItemStore,
	settingsStore *store.SettingsStore, eventStore *store.EventStore, c cache.Cache,
	interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		sender:   sender,
		push:     pushStore,
		items:    itemStore,
		settings: settingsStore,
		events:   eventStore,
		cache:    c,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx, s.now())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// alert is one item due for a member at a given lead day.
type alert struct {
	item model.Item
	dday int
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	from := s.last
	if from.IsZero() || from.After(now) {
		from = now.Add(-s.interval)
	}
	s.last = now

	familyIDs, err := s.push.ListFamilyIDs()
	if err != nil {
		s.logger.Error("list families with subscriptions", "error", err)
		return
	}
	for _, fid := range familyIDs {
		if ctx.Err() != nil {
			return
		}
		s.checkFamily(ctx, fid, from, now)
	}
}

// notifyDue reports whether the latest occurrence of the HH:MM notify time
// in KST falls within (from, now].
func notifyDue(notify string, from, now time.Time) bool {
	t, err := time.ParseInLocation("15:04", notify, inventory.KST)
	if err != nil {
		return false
	}
	local := now.In(inventory.KST)
	at := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, inventory.KST)
	if at.After(now) {
		at = at.AddDate(0, 0, -1)
	}
	return at.After(from)
}

func (s *Scheduler) checkFamily(ctx context.Context, familyID int64, from, now time.Time) {
	subs, err := s.push.ListByFamily(familyID)
	if err != nil {
		s.logger.Error("list subscriptions", "family_id", familyID, "error", err)
		return
	}
	items, err := s.items.List(familyID)
	if err != nil {
		s.logger.Error("list items", "family_id", familyID, "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	byUser := map[int64][]model.PushSubscription{}
	var users []int64
	for _, sub := range subs {
		if _, ok := byUser[sub.UserID]; !ok {
			users = append(users, sub.UserID)
		}
		byUser[sub.UserID] = append(byUser[sub.UserID], sub)
	}

	recorded := false
	for _, uid := range users {
		st, err := s.settings.Get(uid)
		if err != nil {
			s.logger.Error("get settings", "user_id", uid, "error", err)
			continue
		}
		if st == nil {
			d := setting.Default()
			st = &d
		}
		if !st.IsAlarmOn || !notifyDue(st.NotifyTime, from, now) {
			continue
		}

		due := s.dueAlerts(uid, items, st.AlarmDays, now)
		if len(due) == 0 {
			continue
		}
		if s.deliver(ctx, byUser[uid], buildPayload(due)) == 0 {
			continue
		}
		for _, a := range due {
			if err := s.push.RecordSent(uid, a.item.ID, a.dday); err != nil {
				s.logger.Error("record sent", "user_id", uid, "item_id", a.item.ID, "error", err)
			}
			if err := s.events.RecordAlert(model.ExpiryAlert{
				FamilyID:   familyID,
				ItemID:     a.item.ID,
				ItemName:   a.item.Name,
				Qty:        a.item.Qty,
				Storage:    a.item.Storage,
				ExpireDate: a.item.ExpireDate,
				AlertedAt:  now.UTC(),
			}); err != nil {
				s.logger.Error("record alert", "item_id", a.item.ID, "error", err)
				continue
			}
			recorded = true
		}
		s.logger.Info("expiry alert sent", "family_id", familyID, "user_id", uid, "items", len(due))
	}

	if recorded && s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, stats.CachePrefix(familyID)); err != nil {
			s.logger.Warn("invalidate stats cache", "family_id", familyID, "error", err)
		}
	}
}

func (s *Scheduler) dueAlerts(userID int64, items []model.Item, alarmDays []int, now time.Time) []alert {
	var due []alert
	for _, it := range items {
		dday, err := inventory.DaysUntil(it.ExpireDate, now)
		if err != nil || !slices.Contains(alarmDays, dday) {
			continue
		}
		sent, err := s.push.WasSent(userID, it.ID, dday)
		if err != nil {
			s.logger.Error("check sent", "user_id", userID, "item_id", it.ID, "error", err)
			continue
		}
		if !sent {
			due = append(due, alert{item: it, dday: dday})
		}
	}
	slices.SortStableFunc(due, func(a, b alert) int {
		if a.dday != b.dday {
			return a.dday - b.dday
		}
		return strings.Compare(a.item.Name, b.item.Name)
	})
	return due
}

// deliver sends payload to every subscription and returns how many accepted it.
// Expired subscriptions are deleted.
func (s *Scheduler) deliver(ctx context.Context, subs []model.PushSubscription, payload Payload) int {
	delivered := 0
	for i := range subs {
		sub := &subs[i]
		err := s.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				s.logger.Error("delete expired subscription", "error", err)
			}
		default:
			s.logger.Warn("send expiry alert", "subscription_id", sub.ID, "error", err)
		}
	}
	return delivered
}

// SendTest sends a test notification to every device of userID and returns how many accepted it.
func (s *Scheduler) SendTest(ctx context.Context, userID int64) (int, error) {
	subs, err := s.push.ListByUser(userID)
	if err != nil {
		return 0, err
	}
	return s.deliver(ctx, subs, Payload{
		Title: "Foodian",
		Body:  "알림이 정상적으로 설정되었습니다.",
		URL:   "/home",
		Tag:   "test",
	}), nil
}

func ddayLabel(d int) string {
	switch {
	case d == 0:
		return "D-day"
	case d < 0:
		return fmt.Sprintf("D+%d", -d)
	}
	return fmt.Sprintf("D-%d", d)
}

func buildPayload(due []alert) Payload {
	parts := make([]string, 0, maxListed)
	for _, a := range due[:min(len(due), maxListed)] {
		parts = append(parts, fmt.Sprintf("%s %s", a.item.Name, ddayLabel(a.dday)))
	}
	body := strings.Join(parts, ", ")
	if rest := len(due) - maxListed; rest > 0 {
		body += fmt.Sprintf(" 외 %d개", rest)
	}
	return Payload{
		Title: "유통기한 알림",
		Body:  body,
		URL:   "/home",
		Tag:   "expiry",
	}
}
