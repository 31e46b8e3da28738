package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"github.com/subosito/gotenv"
	"google.golang.org/api/iterator"

	"github.com/davidrdinardo/smart-spend-map/internal/logger"
)

// migrationFilePattern matches migration files named like 0001_create_uploads.sql
var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// migration is one SQL file from the migrations directory, already rendered
// against the target project and dataset. The checksum covers the raw file
// bytes, before placeholder replacement, so the same file applied to two
// projects records the same checksum.
type migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

func (m migration) label() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

func main() {
	_ = gotenv.Load()

	var (
		projectID     = flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID (or set GOOGLE_CLOUD_PROJECT)")
		datasetID     = flag.String("dataset", "spendmap", "BigQuery dataset ID")
		appliedBy     = flag.String("applied-by", "migrate-cli", "name recorded next to each applied migration")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "path to the migrations directory")
	)
	flag.Parse()

	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project is required")
	}

	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	m := &migrator{
		client:    client,
		projectID: *projectID,
		datasetID: *datasetID,
		appliedBy: *appliedBy,
		log:       log,
	}
	if err := m.Run(ctx, *migrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Migration run failed")
	}
}

// migrator applies versioned SQL files against one project/dataset pair and
// records what it applied in a schema_migrations table.
type migrator struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
	log       zerolog.Logger
}

// Run ensures the bookkeeping table exists, then applies every pending
// migration in version order. An already-applied file whose checksum no
// longer matches the recorded one is skipped with a drift warning, never
// re-run.
func (m *migrator) Run(ctx context.Context, dir string) error {
	if err := m.ensureSchemaTable(ctx); err != nil {
		return fmt.Errorf("ensuring schema_migrations: %w", err)
	}

	migrations, err := loadMigrations(dir, m.projectID, m.datasetID)
	if err != nil {
		return err
	}
	m.log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return err
	}
	m.log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	ran := 0
	for _, mig := range migrations {
		if prev, ok := applied[mig.Version]; ok {
			if prev != "" && prev != mig.Checksum {
				m.log.Warn().Str("migration", mig.label()).Msg("Migration file edited after it was applied (checksum drift)")
			}
			m.log.Info().Str("migration", mig.label()).Msg("Already applied, skipping")
			continue
		}

		m.log.Info().Str("migration", mig.label()).Msg("Applying")
		if err := m.runSQL(ctx, mig.SQL, nil); err != nil {
			return fmt.Errorf("applying %s: %w", mig.label(), err)
		}
		if err := m.record(ctx, mig); err != nil {
			return fmt.Errorf("recording %s: %w", mig.label(), err)
		}
		ran++
	}

	if ran == 0 {
		m.log.Info().Msg("No new migrations to apply, dataset is up to date")
	} else {
		m.log.Info().Int("applied", ran).Msg("Migrations applied")
	}
	return nil
}

// runSQL runs one statement and waits for the job to finish.
func (m *migrator) runSQL(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	query := m.client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (m *migrator) ensureSchemaTable(ctx context.Context) error {
	return m.runSQL(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, m.projectID, m.datasetID), nil)
}

// appliedChecksums returns the recorded checksum for every applied version.
// A dataset that has never been migrated yields an empty map.
func (m *migrator) appliedChecksums(ctx context.Context) (map[int]string, error) {
	query := m.client.Query(fmt.Sprintf(
		"SELECT version, checksum FROM `%s.%s.schema_migrations`",
		m.projectID, m.datasetID,
	))
	it, err := query.Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]string)
	for {
		var row struct {
			Version  int64
			Checksum bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied[int(row.Version)] = row.Checksum.StringVal
	}
	return applied, nil
}

func (m *migrator) record(ctx context.Context, mig migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, m.projectID, m.datasetID)

	return m.runSQL(ctx, sql, []bigquery.QueryParameter{
		{Name: "version", Value: mig.Version},
		{Name: "name", Value: mig.Name},
		{Name: "checksum", Value: mig.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	})
}

// loadMigrations reads every versioned SQL file under dir, sorted by
// version. Files that do not match the 0001_name.sql pattern are ignored.
// The directory is also tried two levels up so the tool works from the
// repository root and from cmd/migrate.
func loadMigrations(dir, projectID, datasetID string) ([]migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		parent := filepath.Join("..", "..", dir)
		if _, err := os.Stat(parent); os.IsNotExist(err) {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
		dir = parent
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, migration{
			Version:  version,
			Name:     matches[2],
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
