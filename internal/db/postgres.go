package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/types"
	"github.com/courseloom/scorm-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "scorm", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.ScormPackage{},
		&types.ScormSco{},
		&types.ScormTracking{},
		&types.ScormInteraction{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		stmt string
	}{
		{"fk_scorm_sco_package_id", `
			ALTER TABLE "scorm_sco"
			ADD CONSTRAINT "fk_scorm_sco_package_id"
			FOREIGN KEY ("package_id")
			REFERENCES "scorm_package"("id")
			ON DELETE CASCADE`},
		{"fk_scorm_sco_parent_id", `
			ALTER TABLE "scorm_sco"
			ADD CONSTRAINT "fk_scorm_sco_parent_id"
			FOREIGN KEY ("parent_id")
			REFERENCES "scorm_sco"("id")
			ON DELETE CASCADE`},
		{"fk_scorm_tracking_user_id", `
			ALTER TABLE "scorm_tracking"
			ADD CONSTRAINT "fk_scorm_tracking_user_id"
			FOREIGN KEY ("user_id")
			REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_scorm_tracking_sco_id", `
			ALTER TABLE "scorm_tracking"
			ADD CONSTRAINT "fk_scorm_tracking_sco_id"
			FOREIGN KEY ("sco_id")
			REFERENCES "scorm_sco"("id")
			ON DELETE CASCADE`},
		{"fk_scorm_interaction_tracking_id", `
			ALTER TABLE "scorm_interaction"
			ADD CONSTRAINT "fk_scorm_interaction_tracking_id"
			FOREIGN KEY ("tracking_id")
			REFERENCES "scorm_tracking"("id")
			ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		var exists bool
		if err := s.db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		if err := s.db.Exec(c.stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
