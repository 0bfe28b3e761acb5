package container

import (
	"log"

	"groundbooking/internal/config"
	"groundbooking/internal/domain"
	"groundbooking/internal/events"
	"groundbooking/internal/modules/availability"
	"groundbooking/internal/modules/booking"
	"groundbooking/internal/modules/calendar"
	"groundbooking/internal/modules/maintenance"
	"groundbooking/internal/modules/settings"
	"groundbooking/internal/pkg/clock"
	"groundbooking/internal/pkg/jwt"
	"groundbooking/internal/repository"

	"gorm.io/gorm"
)

const (
	asyncBuffer = 256
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Clock  clock.Clock
	JWT    *jwt.Service
	Hub    *events.Hub

	Settings     *settings.Store
	Availability *availability.Service
	Bookings     *booking.Service
	Calendar     *calendar.Projector
	Maintenance  *maintenance.Worker

	SettingsHandler     *settings.Handler
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	CalendarHandler     *calendar.Handler

	closers []func()
}

// NewContainer wires repositories, services and handlers. Optional event
// sinks (AMQP, Telegram) are skipped with a log line when they cannot be
// reached; the booking flow never depends on them.
func NewContainer(cfg *config.Config, db *gorm.DB, clk clock.Clock) *Container {
	if clk == nil {
		clk = clock.Real{Location: cfg.Location}
	}

	c := &Container{
		Config: cfg,
		DB:     db,
		Clock:  clk,
		JWT:    jwt.New(cfg.JWTSecret, cfg.JWTTTL),
		Hub:    events.NewHub(cfg.CORSAllowedOrigins),
	}

	opts := repository.Options{
		Timeout:      cfg.StoreTimeout,
		ReadRetries:  cfg.ReadRetries,
		RetryBackoff: cfg.ReadRetryBackoff,
	}
	settingsRepo := repository.NewSettingsRepository(db, opts)
	bookingRepo := repository.NewBookingRepository(db, opts)

	c.Settings = settings.NewStore(settingsRepo, domain.RateSettings{
		DayRate:        cfg.DefaultDayRate,
		NightRate:      cfg.DefaultNightRate,
		NightStartHour: cfg.DefaultNightStart,
		NightEndHour:   cfg.DefaultNightEnd,
	}, clk)

	c.Availability = availability.NewService(bookingRepo, c.Settings, clk)
	c.Bookings = booking.NewService(bookingRepo, c.Settings, c.emitter(), clk, booking.Config{
		PendingTTL: cfg.PendingTTL,
		HoldTTL:    cfg.HoldTTL,
	})
	c.Calendar = calendar.NewProjector(bookingRepo, cfg.Location)
	c.Maintenance = maintenance.NewWorker(c.Bookings, c.Settings)

	c.SettingsHandler = settings.NewHandler(c.Settings)
	c.AvailabilityHandler = availability.NewHandler(c.Availability)
	c.BookingHandler = booking.NewHandler(c.Bookings)
	c.CalendarHandler = calendar.NewHandler(c.Calendar)

	return c
}

func (c *Container) emitter() events.Emitter {
	sinks := events.Multi{events.LogEmitter{}, c.Hub}

	if c.Config.AMQPURL != "" {
		pub, err := events.DialAMQP(c.Config.AMQPURL, c.Config.EventsExchange)
		if err != nil {
			log.Printf("amqp_disabled err=%v", err)
		} else {
			async := events.NewAsync(pub, asyncBuffer, c.Config.StoreTimeout)
			sinks = append(sinks, async)
			c.closers = append(c.closers, async.Close, func() {
				if err := pub.Close(); err != nil {
					log.Printf("amqp_close_failed err=%v", err)
				}
			})
			log.Printf("amqp_enabled exchange=%s", c.Config.EventsExchange)
		}
	}

	if c.Config.TelegramBotToken != "" {
		bot, err := events.NewTelegramBot(c.Config.TelegramBotToken)
		if err != nil {
			log.Printf("telegram_disabled err=%v", err)
		} else {
			async := events.NewAsync(events.NewTelegramNotifier(bot, c.Config.TelegramAdminChatIDs), asyncBuffer, c.Config.StoreTimeout)
			sinks = append(sinks, async)
			c.closers = append(c.closers, async.Close)
			log.Printf("telegram_enabled chats=%d", len(c.Config.TelegramAdminChatIDs))
		}
	}

	return sinks
}

// Close flushes queued events and releases broker connections.
func (c *Container) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}
