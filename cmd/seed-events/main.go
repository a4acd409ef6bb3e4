package main

import (
	"fmt"
	"log"
	"time"

	"tixmojo/internal/config"
	"tixmojo/internal/database"
	"tixmojo/internal/models"
	"tixmojo/internal/repositories"
)

func main() {
	fmt.Println("Seeding demo events...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	eventRepo := repositories.NewEventRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)

	now := time.Now()

	events := []struct {
		event   models.Event
		tickets []models.TicketType
	}{
		{
			event: models.Event{
				Title:       "Harbour Lights Festival",
				Description: "An open-air music festival on the waterfront with three stages and local food stalls.",
				Venue:       "Barangaroo Reserve",
				City:        "Sydney",
				Category:    "Music",
				StartDate:   now.AddDate(0, 1, 0),
				EndDate:     now.AddDate(0, 1, 2),
				Status:      models.EventPublished,
				Featured:    true,
			},
			tickets: []models.TicketType{
				{Name: "General Admission", Description: "Access to all three stages", Price: 3900, Currency: "AUD", Quantity: 500, SaleStart: now, SaleEnd: now.AddDate(0, 1, 0)},
				{Name: "VIP", Description: "Front-of-stage viewing and lounge access", Price: 12900, Currency: "AUD", Quantity: 80, SaleStart: now, SaleEnd: now.AddDate(0, 1, 0)},
			},
		},
		{
			event: models.Event{
				Title:       "Laneway Comedy Night",
				Description: "Five headline comedians in one night, hosted in a converted warehouse.",
				Venue:       "The Foundry",
				City:        "Melbourne",
				Category:    "Comedy",
				StartDate:   now.AddDate(0, 0, 14),
				EndDate:     now.AddDate(0, 0, 14),
				Status:      models.EventPublished,
				Featured:    false,
			},
			tickets: []models.TicketType{
				{Name: "Standard", Description: "Unallocated seating", Price: 4500, Currency: "AUD", Quantity: 200, SaleStart: now, SaleEnd: now.AddDate(0, 0, 14)},
			},
		},
		{
			event: models.Event{
				Title:       "Riverfire Tech Summit",
				Description: "A single-day conference on distributed systems and product engineering.",
				Venue:       "Convention Centre",
				City:        "Brisbane",
				Category:    "Conference",
				StartDate:   now.AddDate(0, 2, 0),
				EndDate:     now.AddDate(0, 2, 0),
				Status:      models.EventPublished,
				Featured:    true,
			},
			tickets: []models.TicketType{
				{Name: "Early Bird", Description: "Limited early pricing", Price: 19900, Currency: "AUD", Quantity: 100, SaleStart: now, SaleEnd: now.AddDate(0, 1, 0)},
				{Name: "Full Price", Description: "Standard conference pass", Price: 29900, Currency: "AUD", Quantity: 400, SaleStart: now, SaleEnd: now.AddDate(0, 2, 0)},
			},
		},
	}

	for _, seed := range events {
		created, err := eventRepo.Create(&seed.event)
		if err != nil {
			log.Fatalf("Failed to create event %q: %v", seed.event.Title, err)
		}
		fmt.Printf("Created event %d: %s\n", created.ID, created.Title)

		for _, ticket := range seed.tickets {
			ticket.EventID = created.ID
			createdTicket, err := ticketRepo.Create(&ticket)
			if err != nil {
				log.Fatalf("Failed to create ticket type %q: %v", ticket.Name, err)
			}
			fmt.Printf("  Ticket type %d: %s (%d cents)\n", createdTicket.ID, createdTicket.Name, createdTicket.Price)
		}
	}

	fmt.Println("Seeding complete.")
}
