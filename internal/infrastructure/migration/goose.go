package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/infusio/infusio/internal/infrastructure/persistence/models"
	"github.com/infusio/infusio/internal/shared/logger"
)

// MigrationState is one row of `migrate status`.
type MigrationState struct {
	Version int64
	Name    string
	Applied bool
}

// GooseStrategy runs the versioned schema migrations of the ticket store.
// Migrations are Go functions built on the GORM migrator, so the same set
// serves sqlite and mysql.
type GooseStrategy struct {
	logger logger.Interface
}

func NewGooseStrategy(log logger.Interface) *GooseStrategy {
	return &GooseStrategy{logger: log.With("component", "migration.goose")}
}

func (s *GooseStrategy) GetName() string {
	return "goose"
}

// Migrate applies every pending migration.
func (s *GooseStrategy) Migrate(db *gorm.DB) error {
	ctx := context.Background()
	p, err := s.provider(db)
	if err != nil {
		return err
	}

	from, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	s.logger.Infow("starting goose migration", "version", from)

	results, err := p.Up(ctx)
	if err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}
	s.logger.Infow("migration completed successfully",
		"from_version", from,
		"to_version", to,
		"applied", len(results))
	return nil
}

// MigrateDown rolls back the latest steps migrations.
func (s *GooseStrategy) MigrateDown(db *gorm.DB, steps int) error {
	ctx := context.Background()
	p, err := s.provider(db)
	if err != nil {
		return err
	}

	s.logger.Infow("starting down migration", "steps", steps)
	for i := 0; i < steps; i++ {
		result, err := p.Down(ctx)
		if err != nil {
			s.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
		s.logger.Infow("rolled back migration", "version", result.Source.Version)
	}
	return nil
}

func (s *GooseStrategy) GetVersion(db *gorm.DB) (int64, error) {
	p, err := s.provider(db)
	if err != nil {
		return 0, err
	}
	version, err := p.GetDBVersion(context.Background())
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// Status lists every known migration in version order.
func (s *GooseStrategy) Status(db *gorm.DB) ([]MigrationState, error) {
	p, err := s.provider(db)
	if err != nil {
		return nil, err
	}
	statuses, err := p.Status(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationState{
			Version: st.Source.Version,
			Name:    migrationNames[st.Source.Version],
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Pending reports how many migrations have not been applied.
func (s *GooseStrategy) Pending(db *gorm.DB) (int, error) {
	states, err := s.Status(db)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, st := range states {
		if !st.Applied {
			n++
		}
	}
	return n, nil
}

func (s *GooseStrategy) provider(db *gorm.DB) (*goose.Provider, error) {
	dialect, err := gooseDialect(db)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	p, err := goose.NewProvider(dialect, sqlDB, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(supportMigrations(db)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return p, nil
}

func gooseDialect(db *gorm.DB) (goose.Dialect, error) {
	switch name := db.Dialector.Name(); name {
	case "mysql":
		return goose.DialectMySQL, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no goose dialect for database %q", name)
	}
}

const (
	versionCreateTickets  int64 = 20250601000001
	versionCreateMessages int64 = 20250601000002
)

var migrationNames = map[int64]string{
	versionCreateTickets:  "create_support_tickets",
	versionCreateMessages: "create_support_ticket_messages",
}

func supportMigrations(db *gorm.DB) []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(versionCreateTickets,
			createTable(db, &models.SupportTicketModel{}),
			dropTable(db, &models.SupportTicketModel{}),
		),
		goose.NewGoMigration(versionCreateMessages,
			createTable(db, &models.SupportTicketMessageModel{}),
			dropTable(db, &models.SupportTicketMessageModel{}),
		),
	}
}

// createTable tolerates tables left by an earlier AutoMigrate run.
func createTable(db *gorm.DB, model interface{}) *goose.GoFunc {
	return &goose.GoFunc{
		Mode: goose.TransactionDisabled,
		RunDB: func(ctx context.Context, _ *sql.DB) error {
			m := db.WithContext(ctx).Migrator()
			if m.HasTable(model) {
				return nil
			}
			return m.CreateTable(model)
		},
	}
}

func dropTable(db *gorm.DB, model interface{}) *goose.GoFunc {
	return &goose.GoFunc{
		Mode: goose.TransactionDisabled,
		RunDB: func(ctx context.Context, _ *sql.DB) error {
			return db.WithContext(ctx).Migrator().DropTable(model)
		},
	}
}
