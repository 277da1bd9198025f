package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/courseloom/scorm-backend/internal/db"
	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/repos"
	"github.com/courseloom/scorm-backend/internal/services"
	"github.com/courseloom/scorm-backend/internal/storage"
	"github.com/courseloom/scorm-backend/internal/utils"
)

// jobSpec is the YAML shape the importer consumes:
//
//	parallelism: 4
//	packages:
//	  - path: ./courses/intro.zip
//	  - path: ./courses/safety.zip
type jobSpec struct {
	Parallelism int `yaml:"parallelism"`
	Packages    []struct {
		Path string `yaml:"path"`
	} `yaml:"packages"`
}

func main() {
	specPath := flag.String("spec", "import.yaml", "path to the YAML import spec")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(*specPath)
	if err != nil {
		log.Fatal("Failed to read import spec", "path", *specPath, "error", err)
	}
	var spec jobSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		log.Fatal("Failed to parse import spec", "path", *specPath, "error", err)
	}
	if len(spec.Packages) == 0 {
		log.Fatal("Import spec lists no packages", "path", *specPath)
	}
	if spec.Parallelism <= 0 {
		spec.Parallelism = 2
	}

	contentRoot := utils.GetEnv("CONTENT_ROOT", "./data/content", log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	store, err := storage.NewLocalStore(contentRoot, log)
	if err != nil {
		log.Fatal("Could not init content store", "error", err)
	}

	packageRepo := repos.NewScormPackageRepo(thePG, log)
	scoRepo := repos.NewScormScoRepo(thePG, log)
	importService := services.NewPackageImportService(thePG, log, store, packageRepo, scoRepo)

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(spec.Parallelism)

	for _, entry := range spec.Packages {
		path := entry.Path
		g.Go(func() error {
			pkg, impErr := importService.ImportPackage(ctx, path)
			if impErr != nil {
				log.Error("Import failed", "path", path, "error", impErr)
				return fmt.Errorf("%s: %w", path, impErr)
			}
			log.Info("Imported package",
				"path", path,
				"package_id", pkg.ID,
				"identifier", pkg.Identifier,
				"version", pkg.Version)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal("Bulk import finished with errors", "error", err)
	}
	log.Info("Bulk import finished", "count", len(spec.Packages))
}
