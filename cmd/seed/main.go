package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/config"
	"github.com/eternalist/theprintfarm/internal/db"
	"github.com/eternalist/theprintfarm/internal/logging"
	"github.com/eternalist/theprintfarm/internal/model"
)

const demoPassword = "password123"

var seedStatuses = []model.RequestStatus{
	model.StatusRequested,
	model.StatusAccepted,
	model.StatusPrinting,
	model.StatusCompleted,
}

func main() {
	var (
		envFile = flag.String("env", ".env", "Path to an optional .env file")
		reset   = flag.Bool("reset", false, "Delete every row before seeding")
		signup  = flag.Bool("signup", false, "Also create the demo accounts at the identity provider")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, "text")
	ctx := context.Background()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("db connection failed")
	}
	defer pool.Close()
	store := db.NewStore(pool)

	if *reset {
		if _, err := pool.Exec(ctx, `TRUNCATE favorites, messages, print_requests, models, maker_profiles, customer_profiles, users, announcements`); err != nil {
			log.WithError(err).Fatal("reset failed")
		}
		log.Info("cleaned existing data")
	}

	var accounts []model.Account
	err = store.WithTx(ctx, func(q *db.Queries) error {
		var seedErr error
		accounts, seedErr = seed(ctx, q, time.Now().UTC(), log)
		return seedErr
	})
	if err != nil {
		log.WithError(err).Fatal("seed failed")
	}

	if *signup {
		signUpAccounts(ctx, cfg, accounts, log)
	}

	log.Info("database seeded")
	fmt.Printf("Demo logins (password %s):\n  admin@theprintfarm.com\n  customer1@example.com\n  maker1@example.com\n", demoPassword)
}

func seed(ctx context.Context, q *db.Queries, now time.Time, log logrus.FieldLogger) ([]model.Account, error) {
	models := make([]model.ModelListing, 0, len(demoModels))
	for _, d := range demoModels {
		listing := d.listing(uuid.NewString(), now)
		if err := q.CreateModel(ctx, listing); err != nil {
			return nil, fmt.Errorf("create model %s: %w", d.title, err)
		}
		models = append(models, listing)
	}
	log.WithField("count", len(models)).Info("created models")

	newAccount := func(email, name string, role model.Role) (model.Account, error) {
		account := model.Account{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      name,
			Role:      role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := q.CreateAccount(ctx, account); err != nil {
			return model.Account{}, fmt.Errorf("create account %s: %w", email, err)
		}
		return account, nil
	}

	admin, err := newAccount("admin@theprintfarm.com", "System Admin", model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	accounts := []model.Account{admin}

	var customers []model.Account
	for i, d := range demoCustomers {
		customer, err := newAccount(fmt.Sprintf("customer%d@example.com", i+1), fmt.Sprintf("Customer %d", i+1), model.RoleCustomer)
		if err != nil {
			return nil, err
		}
		profile := model.DefaultCustomerProfile(customer.ID)
		profile.PreferredMaterials = d.materials
		profile.MaxBudget = decimal.NewNullDecimal(decimal.NewFromInt(int64(i+1) * 50))
		profile.City = ptr(d.city)
		profile.State = ptr(d.state)
		if err := q.UpsertCustomerProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("customer profile: %w", err)
		}
		customers = append(customers, customer)
	}
	accounts = append(accounts, customers...)

	var makers []model.Account
	for _, d := range demoMakers {
		maker, err := newAccount(d.email, d.name, model.RoleMaker)
		if err != nil {
			return nil, err
		}
		profile := model.DefaultMakerProfile(maker.ID)
		profile.Materials = d.materials
		profile.PrinterVolume = ptr(d.printerVolume)
		profile.Resolution = ptr(d.resolution)
		profile.HasEnclosure = d.enclosure
		profile.Status = d.status
		profile.Availability = ptr(d.availability)
		profile.HourlyRate = decimal.NewNullDecimal(decimal.NewFromInt(d.hourlyRate))
		profile.City = ptr(d.city)
		profile.State = ptr(d.state)
		profile.CompletedPrints = d.completed
		profile.Rating = decimal.RequireFromString(d.rating)
		profile.TotalRatings = d.ratings
		if err := q.UpsertMakerProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("maker profile: %w", err)
		}
		makers = append(makers, maker)
	}
	accounts = append(accounts, makers...)
	log.WithFields(logrus.Fields{"customers": len(customers), "makers": len(makers)}).Info("created accounts")

	for i, customer := range customers {
		end := (i+1)*2 + 1
		if end > len(models) {
			end = len(models)
		}
		for _, m := range models[i*2 : end] {
			if err := q.AddFavorite(ctx, customer.ID, m.ID); err != nil {
				return nil, fmt.Errorf("favorite: %w", err)
			}
		}
	}

	materials := []string{"PLA", "ABS", "PETG"}
	colors := []string{"Red", "Blue", "Black", "White", "Green"}
	for i := 0; i < 6; i++ {
		maker := makers[i%len(makers)]
		material := materials[i%len(materials)]
		if !demoMakers[i%len(makers)].supports(material) {
			material = "PLA"
		}
		pr := model.PrintRequest{
			ID:          uuid.NewString(),
			ModelID:     models[i%len(models)].ID,
			CustomerID:  customers[i%len(customers)].ID,
			MakerID:     maker.ID,
			Quantity:    i%3 + 1,
			Material:    material,
			Color:       ptr(colors[i%len(colors)]),
			Urgency:     model.UrgencyNormal,
			Status:      model.StatusRequested,
			QuotedPrice: decimal.NewNullDecimal(decimal.NewFromInt(int64(10 + 7*i))),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if i%2 == 0 {
			pr.Notes = ptr("Please use high quality settings")
		}
		if err := q.CreatePrintRequest(ctx, pr); err != nil {
			return nil, fmt.Errorf("print request: %w", err)
		}

		target := seedStatuses[i%len(seedStatuses)]
		if target == model.StatusRequested {
			continue
		}
		pr.Status = target
		pr.AcceptedAt = ptr(now.Add(-48 * time.Hour))
		if target != model.StatusAccepted {
			pr.StartedAt = ptr(now.Add(-24 * time.Hour))
		}
		if target == model.StatusCompleted {
			pr.CompletedAt = ptr(now)
		}
		if _, err := q.UpdatePrintRequestStatus(ctx, pr, model.StatusRequested); err != nil {
			return nil, fmt.Errorf("print request status: %w", err)
		}
	}

	for i := 0; i < 8; i++ {
		customer := customers[i%len(customers)]
		maker := makers[i%len(makers)]
		msg := model.Message{
			ID:         uuid.NewString(),
			SenderID:   customer.ID,
			ReceiverID: maker.ID,
			Content:    demoMessages[i%len(demoMessages)],
			IsRead:     i%3 != 0,
			CreatedAt:  now.Add(time.Duration(i-8) * time.Hour),
		}
		if i%2 == 1 {
			msg.SenderID, msg.ReceiverID = maker.ID, customer.ID
		}
		if i%3 == 0 {
			msg.ModelURL = models[i%len(models)].SourceURL
		}
		if err := q.CreateMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("message: %w", err)
		}
	}

	for _, a := range demoAnnouncements {
		a.ID = uuid.NewString()
		a.CreatedAt = now
		a.UpdatedAt = now
		if err := q.CreateAnnouncement(ctx, a); err != nil {
			return nil, fmt.Errorf("announcement: %w", err)
		}
	}
	return accounts, nil
}

func (d demoMaker) supports(material string) bool {
	for _, m := range d.materials {
		if m == material {
			return true
		}
	}
	return false
}

// signUpAccounts registers the demo accounts with Supabase so the demo
// logins work. Accounts that already exist there are skipped.
func signUpAccounts(ctx context.Context, cfg config.Config, accounts []model.Account, log logrus.FieldLogger) {
	deps, err := clients.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("client init failed")
	}
	defer deps.Close()
	if deps.Identity == nil {
		log.Warn("identity provider not configured, skipping sign up")
		return
	}
	for _, account := range accounts {
		if _, err := deps.Identity.SignUp(ctx, account.Email, demoPassword); err != nil {
			log.WithError(err).WithField("email", account.Email).Warn("sign up failed")
		}
	}
}
