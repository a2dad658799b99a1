package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/hireagent/backend/models"
	"github.com/krshsl/hireagent/backend/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoCustomerEmail    = "demo@example.com"
	demoCustomerPassword = "password123"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase creates a demo customer and the agents they own. Running it
// again leaves existing rows alone.
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	customer, err := s.seedCustomer(ctx)
	if err != nil {
		return err
	}

	defaultOrders := []models.Order{
		{
			Title:          "Backend Engineer",
			JobDescription: "Build and operate Go services backed by PostgreSQL. You will own APIs end to end, from schema design to on-call.",
			AgentName:      "Sarah",
			AgentGreeting:  "Hi, I'm Sarah. I'll be running your interview for the Backend Engineer role today.",
			Behaviour:      "Professional and encouraging. Asks one focused question at a time and digs into concrete past work.",
			Knowledge:      "Go concurrency, HTTP services, SQL transactions and isolation levels, observability, incident response.",
			QuestionCount:  5,
		},
		{
			Title:          "Product Manager",
			JobDescription: "Drive discovery and delivery for the applicant tracking product together with design and engineering.",
			AgentName:      "Marcus",
			Behaviour:      "Strategic and curious. Focuses on user problems, prioritisation and measurable outcomes.",
			Knowledge:      "Product discovery, roadmapping, metrics, stakeholder management.",
			QuestionCount:  3,
		},
	}

	for _, order := range defaultOrders {
		order.CustomerID = customer.ID
		if err := s.seedOrder(ctx, order); err != nil {
			slog.Error("Failed to seed agent", "title", order.Title, "error", err)
		}
	}

	slog.Info("Database seeding completed successfully", "customer", customer.Email)
	return nil
}

func (s *DatabaseSeeder) seedCustomer(ctx context.Context) (*models.User, error) {
	existingUser, err := s.repo.GetUserByEmail(ctx, DemoCustomerEmail)
	if err != nil {
		return nil, fmt.Errorf("error checking user %s: %w", DemoCustomerEmail, err)
	}
	if existingUser != nil {
		slog.Info("User already exists, skipping", "email", DemoCustomerEmail)
		return existingUser, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(demoCustomerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    DemoCustomerEmail,
		Password: string(hashedPassword),
		FullName: "Demo Customer",
		Role:     "customer",
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	slog.Info("Created user", "email", user.Email)
	return user, nil
}

// seedOrder creates the order unless the customer already has one with the same title.
func (s *DatabaseSeeder) seedOrder(ctx context.Context, order models.Order) error {
	existing, err := s.repo.ListOrders(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("error checking agents: %w", err)
	}
	for _, o := range existing {
		if o.Title == order.Title {
			slog.Info("Agent already exists, skipping", "title", order.Title, "agent_id", o.ID)
			return nil
		}
	}

	if err := s.repo.CreateOrder(ctx, &order); err != nil {
		return fmt.Errorf("failed to create agent %s: %w", order.Title, err)
	}

	slog.Info("Created agent", "title", order.Title, "agent_id", order.ID)
	return nil
}
