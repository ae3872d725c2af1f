package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/adapters/database"
	"github.com/jeevanpath/backend/internal/adapters/search"
	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/typesense"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	"github.com/jeevanpath/backend/pkg/config"
)

type seedProvider struct {
	name     string
	phone    string
	language string
	resource int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("jeevanpath-seed", cfg.Server.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	var searchProvider providers.ResourceSearchProvider
	if cfg.Typesense.Enabled {
		if tsClient, err := typesense.NewClient(ctx, &cfg.Typesense); err == nil {
			adapter := search.NewTypesenseAdapter(tsClient)
			if err := adapter.InitSchema(ctx); err == nil {
				searchProvider = adapter
			}
		} else {
			log.Warn().Err(err).Msg("Typesense unavailable, seeding without indexing")
		}
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				emergency_contacts,
				emergency_notifications,
				user_emergency_alerts,
				emergency_services,
				users,
				resources
			CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	resourceRepo := database.NewResourceAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)
	resourceService := services.NewResourceService(resourceRepo, searchProvider)
	directory := services.NewProviderDirectory(userRepo, resourceRepo)
	contactService := services.NewContactService(database.NewContactAdapter(pgClient), nil)

	now := time.Now()

	// Resources around central New Delhi
	resources := []entities.Resource{
		{
			Name: "AIIMS Emergency Wing", Category: entities.ResourceCategoryClinic,
			Address: "Ansari Nagar, New Delhi", ContactNumbers: []string{"01126588500"},
			Location:       entities.NewGeoPoint(28.5672, 77.2100),
			OperatingHours: entities.OperatingHours{Is24Hours: true},
			Rating:         4.6, Services: []string{"trauma", "cardiology"},
			Accessibility: entities.Accessibility{WheelchairAccessible: true, Parking: true},
			IsVerified:    true,
		},
		{
			Name: "Apollo Pharmacy Connaught Place", Category: entities.ResourceCategoryPharmacy,
			Address: "N-Block, Connaught Place, New Delhi", ContactNumbers: []string{"01143564356"},
			Location:       entities.NewGeoPoint(28.6315, 77.2167),
			OperatingHours: entities.OperatingHours{Open: "08:00", Close: "23:00", Days: []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}},
			Rating:         4.2, Services: []string{"prescriptions", "first aid"},
			IsVerified: true,
		},
		{
			Name: "Red Cross Blood Bank", Category: entities.ResourceCategoryBloodBank,
			Address: "1 Red Cross Road, New Delhi", ContactNumbers: []string{"01123716441"},
			Location:       entities.NewGeoPoint(28.6208, 77.2090),
			OperatingHours: entities.OperatingHours{Is24Hours: true},
			Rating:         4.4, Services: []string{"whole blood", "platelets"},
			Accessibility: entities.Accessibility{WheelchairAccessible: true},
			IsVerified:    true,
		},
		{
			Name: "Safdarjung Community Clinic", Category: entities.ResourceCategoryClinic,
			Address: "Safdarjung Enclave, New Delhi", ContactNumbers: []string{"01126707444"},
			Location:       entities.NewGeoPoint(28.5687, 77.1960),
			OperatingHours: entities.OperatingHours{Open: "07:00", Close: "22:00", Days: []string{"mon", "tue", "wed", "thu", "fri", "sat"}},
			Rating:         4.0, Services: []string{"general medicine"},
			IsVerified: true,
		},
		{
			Name: "Gurugram Lifeline Clinic", Category: entities.ResourceCategoryClinic,
			Address: "Sector 29, Gurugram", ContactNumbers: []string{"01244567890"},
			Location:       entities.NewGeoPoint(28.4673, 77.0650),
			OperatingHours: entities.OperatingHours{Is24Hours: true},
			Rating:         3.9, Services: []string{"trauma"},
			IsVerified: false,
		},
	}

	for i := range resources {
		resources[i].ID = uuid.NewString()
		resources[i].CreatedAt = now
		resources[i].UpdatedAt = now
		if err := resourceService.Create(ctx, &resources[i]); err != nil {
			log.Error().Err(err).Str("resource", resources[i].Name).Msg("failed to create resource")
		}
	}

	// Providers, one or two per resource; the Gurugram clinic sits outside the
	// initial radius from central Delhi so escalation has something to find.
	seedProviders := []seedProvider{
		{name: "Dr. Meera Iyer", phone: "9810000001", language: "en", resource: 0},
		{name: "Dr. Arjun Sethi", phone: "9810000002", language: "hi", resource: 0},
		{name: "Ravi Kumar", phone: "9810000003", language: "hi", resource: 1},
		{name: "Sunita Verma", phone: "9810000004", language: "en", resource: 2},
		{name: "Dr. Kabir Malhotra", phone: "9810000005", language: "en", resource: 4},
	}

	for _, sp := range seedProviders {
		u := &entities.User{
			ID:                            uuid.NewString(),
			ExternalID:                    "seed-" + sp.phone,
			Name:                          sp.name,
			Phone:                         sp.phone,
			IsServiceProvider:             true,
			EmergencyNotificationsEnabled: true,
			Role:                          entities.UserRoleUser,
			IsActive:                      true,
			Language:                      sp.language,
			CreatedAt:                     now,
			UpdatedAt:                     now,
		}
		if err := userRepo.Create(ctx, u); err != nil {
			log.Error().Err(err).Str("provider", sp.name).Msg("failed to create provider")
			continue
		}
		if err := directory.Assign(ctx, u.ID, resources[sp.resource].ID); err != nil {
			log.Error().Err(err).Str("provider", sp.name).Msg("failed to assign provider")
		}
	}

	requester := &entities.User{
		ID:         uuid.NewString(),
		ExternalID: "seed-requester",
		Name:       "Priya Sharma",
		Phone:      "9810000099",
		Role:       entities.UserRoleUser,
		IsActive:   true,
		Language:   "en",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := userRepo.Create(ctx, requester); err != nil {
		log.Fatal().Err(err).Msg("failed to create requester")
	}

	for _, c := range []entities.EmergencyContact{
		{UserID: requester.ID, Name: "Anil Sharma", Phone: "9810000098", Relationship: "father", IsPrimary: true},
		{UserID: requester.ID, Name: "Neha Gupta", Phone: "9810000097", Relationship: "friend"},
	} {
		contact := c
		if err := contactService.Create(ctx, &contact); err != nil {
			log.Error().Err(err).Str("contact", contact.Name).Msg("failed to create contact")
		}
	}

	log.Info().
		Int("resources", len(resources)).
		Int("providers", len(seedProviders)).
		Str("requester_id", requester.ID).
		Msg("seeding completed")
}
