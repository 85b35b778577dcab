package recipes

import (
	"os/signal"
	"syscall"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/token"
	"github.com/bitebliss/bitebliss-engine/pkg/internal/email"
	"github.com/bitebliss/bitebliss-engine/pkg/internal/httpserver"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/analytics"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/config"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/entitlement"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/gate"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/generator"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/notify"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/reconciler"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/seed"
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bitebliss",
		Short: "Recipe subscription backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Migrate the schema and create the default subscription plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cnf, err := config.Load()
			if err != nil {
				return err
			}
			db, err := open(cnf, logger)
			if err != nil {
				return err
			}
			_, err = seed.Plans(cmd.Context(), logger, repo.NewPlanRepo(db), cnf.Stripe)
			return err
		},
	})

	return cmd
}

func open(cnf config.Config, logger *zap.Logger) (*connector.Database, error) {
	db, err := connector.New(cnf.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		return nil, errors.WrapPrefix(err, "migrate", 0)
	}
	return db, nil
}

func serve(cmd *cobra.Command) error {
	cmd.SilenceUsage = true

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cnf, err := config.Load()
	if err != nil {
		return err
	}
	if cnf.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if cnf.Stripe.WebhookSecret == "" {
		logger.Warn("stripe webhook secret is not set, every webhook delivery will be rejected")
	}

	db, err := open(cnf, logger)
	if err != nil {
		return err
	}
	if _, err := seed.Plans(cmd.Context(), logger, repo.NewPlanRepo(db), cnf.Stripe); err != nil {
		logger.Error("failed to seed subscription plans", zap.Error(err))
	}

	repos := api.Repos{
		Plans:      repo.NewPlanRepo(db),
		Subs:       repo.NewSubscriptionRepo(db),
		Users:      repo.NewUserRepo(db),
		Recipes:    repo.NewRecipeRepo(db),
		Categories: repo.NewCategoryRepo(db),
	}

	var mailer email.Service = email.NoopService{Logger: logger}
	if cnf.Email.SendGridAPIKey != "" {
		mailer = email.NewSendGridClient(cnf.Email.SendGridAPIKey, cnf.Email.From, cnf.Email.FromName, logger)
	}
	notifier := notify.New(logger, mailer, cnf.Client.URL, cnf.Email.Timeout)

	provider := billing.NewStripeProvider(logger, cnf.Stripe.SecretKey, cnf.Stripe.WebhookSecret, cnf.Stripe.Timeout)
	rec := reconciler.New(logger, provider, repos.Plans, repos.Subs, repos.Users, notifier)
	contentGate := gate.New(logger, repos.Recipes, repos.Categories)

	services := api.Services{
		Resolver:   entitlement.NewResolver(logger, repos.Subs),
		Gate:       contentGate,
		Billing:    billing.NewService(logger, provider, repos.Users, repos.Subs, cnf.Client.URL),
		Provider:   provider,
		Reconciler: rec,
		Mailer:     notifier,
		Generator:  generator.New(logger, cnf.AI, repos.Recipes, repos.Categories),
		Analytics:  analytics.New(logger, repos.Users, repos.Subs, repos.Recipes),
	}
	routes := api.New(logger, token.NewVerifier(cnf.Auth.JWTSecret, cnf.Auth.AdminJWTSecret), repos, services)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = httpserver.RegisterAndStart(ctx, logger, httpserver.Config{
		Address:         cnf.Http.Address,
		ReadTimeout:     cnf.Http.ReadTimeout,
		WriteTimeout:    cnf.Http.WriteTimeout,
		ShutdownTimeout: cnf.Http.ShutdownTimeout,
		BodyLimit:       cnf.Http.BodyLimit,
		JaegerAgentHost: cnf.Tracing.JaegerAgentHost,
		ServiceName:     cnf.Tracing.ServiceName,
	}, routes)

	// let detached work finish before the process exits
	rec.Wait()
	contentGate.Wait()
	return err
}
