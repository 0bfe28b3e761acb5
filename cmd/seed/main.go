package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"groundbooking/internal/config"
	"groundbooking/internal/container"
	"groundbooking/internal/database"
	"groundbooking/internal/domain"
	"groundbooking/internal/middleware"
	"groundbooking/internal/modules/booking"
	"groundbooking/internal/repository"
)

type demoBooking struct {
	name, phone string
	dayOffset   int
	hours       []int
	advance     int64
	approve     bool
}

var demo = []demoBooking{
	{name: "Usman Tariq", phone: "0300-1234567", dayOffset: 1, hours: []int{9, 10, 11}, advance: 1500, approve: true},
	{name: "Ali Raza", phone: "0321-7654321", dayOffset: 1, hours: []int{18, 19}, advance: 0},
	{name: "Saad Khan", phone: "0345-1112233", dayOffset: 2, hours: []int{22, 23}, advance: 2000, approve: true},
	{name: "Night Owls XI", phone: "0312-9998877", dayOffset: 3, hours: []int{0, 1, 2}, advance: 0},
}

func main() {
	actor := flag.String("admin", "owner", "subject of the printed admin token")
	skipBookings := flag.Bool("settings-only", false, "seed rate settings without demo bookings")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	defer database.Close(db)

	log.Println("Running migrations...")
	if err := repository.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	c := container.NewContainer(cfg, db, nil)
	defer c.Close()
	ctx := context.Background()

	rs, err := c.Settings.Load(ctx)
	if err != nil {
		log.Fatal("Settings seed failed:", err)
	}
	log.Printf("Rates: day=%d night=%d night %02d:00-%02d:00", rs.DayRate, rs.NightRate, rs.NightStartHour, rs.NightEndHour)

	if !*skipBookings {
		today := c.Clock.Now()
		for i, d := range demo {
			date := today.AddDate(0, 0, d.dayOffset).Format(domain.DateLayout)
			req := booking.CreateBookingRequest{
				Customer:       booking.CustomerInput{Name: d.name, Phone: d.phone},
				Date:           date,
				Hours:          d.hours,
				IdempotencyKey: fmt.Sprintf("seed-%s-%d", date, i),
			}
			if d.advance > 0 {
				req.Payment = booking.PaymentInput{AdvancePayment: d.advance, Method: "cash"}
			}

			b, created, err := c.Bookings.Create(ctx, req)
			var conflict *domain.SlotConflictError
			switch {
			case errors.As(err, &conflict):
				log.Printf("Skipping %s on %s: hours %v already taken", d.name, date, conflict.Hours)
				continue
			case err != nil:
				log.Fatalf("Create booking for %s failed: %v", d.name, err)
			}
			if !created {
				log.Printf("Booking %s already seeded", b.BookingNumber)
				continue
			}

			if d.approve {
				approved, err := c.Bookings.Approve(ctx, b.ID, booking.ActionRequest{Notes: "seeded"}, *actor)
				if err != nil {
					log.Fatalf("Approve %s failed: %v", b.BookingNumber, err)
				}
				b = approved
			}
			log.Printf("Booking %s %s %v status=%s total=%d", b.BookingNumber, b.BookingDate, b.Hours(), b.Status, b.TotalAmount)
		}
	}

	token, err := c.JWT.GenerateToken(*actor, middleware.RoleAdmin)
	if err != nil {
		log.Fatal("Token generation failed:", err)
	}
	log.Printf("Admin token (valid %s):", cfg.JWTTTL.Round(time.Minute))
	fmt.Println(token)
}
