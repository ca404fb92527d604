package db

import (
	"fmt"
	"os"

	"artisancrm/pkg/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// RunMigrations brings the schema up to date: GORM AutoMigrate for table
// creation, then the additive column migrations and custom indexes.
// Safe to run on every startup.
func RunMigrations(db *gorm.DB) error {
	log.Info().Msg("Starting database migrations...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Warn().Err(err).Msg("Could not create uuid-ossp extension")
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to run GORM AutoMigrate: %w", err)
	}

	if err := addMissingColumns(db); err != nil {
		return fmt.Errorf("column migrations failed: %w", err)
	}

	if err := createCustomIndexes(db); err != nil {
		log.Warn().Err(err).Msg("Failed to create some custom indexes")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// columnMigration is one additive, idempotent column change. Backfill
// runs after the ADD COLUMN so rows created before the column existed
// end up with a usable value instead of NULL.
type columnMigration struct {
	table    string
	column   string
	addSQL   string
	backfill string
}

var columnMigrations = []columnMigration{
	{
		table:    "contacts",
		column:   "tags",
		addSQL:   `ALTER TABLE contacts ADD COLUMN IF NOT EXISTS tags text`,
		backfill: `UPDATE contacts SET tags = '' WHERE tags IS NULL`,
	},
	{
		table:    "contacts",
		column:   "type",
		addSQL:   `ALTER TABLE contacts ADD COLUMN IF NOT EXISTS type varchar(20)`,
		backfill: `UPDATE contacts SET type = 'client' WHERE type IS NULL OR type = ''`,
	},
	{
		table:    "deals",
		column:   "amount_estimated",
		addSQL:   `ALTER TABLE deals ADD COLUMN IF NOT EXISTS amount_estimated numeric`,
		backfill: "",
	},
	{
		table:    "deals",
		column:   "last_message_preview",
		addSQL:   `ALTER TABLE deals ADD COLUMN IF NOT EXISTS last_message_preview text`,
		backfill: `UPDATE deals SET last_message_preview = '' WHERE last_message_preview IS NULL`,
	},
	{
		table:    "deals",
		column:   "last_message_channel",
		addSQL:   `ALTER TABLE deals ADD COLUMN IF NOT EXISTS last_message_channel text`,
		backfill: `UPDATE deals SET last_message_channel = 'WhatsApp' WHERE last_message_channel IS NULL OR last_message_channel = ''`,
	},
	{
		table:    "deals",
		column:   "last_message_at",
		addSQL:   `ALTER TABLE deals ADD COLUMN IF NOT EXISTS last_message_at timestamptz`,
		backfill: "",
	},
	{
		table:    "messages",
		column:   "channel",
		addSQL:   `ALTER TABLE messages ADD COLUMN IF NOT EXISTS channel text`,
		backfill: `UPDATE messages SET channel = 'WhatsApp' WHERE channel IS NULL OR channel = ''`,
	},
	{
		table:    "messages",
		column:   "sent_at",
		addSQL:   `ALTER TABLE messages ADD COLUMN IF NOT EXISTS sent_at timestamptz`,
		backfill: `UPDATE messages SET sent_at = created_at WHERE sent_at IS NULL`,
	},
}

// addMissingColumns applies the additive column migrations.
// Older deployments predate several columns, so every startup replays
// the full list; ADD COLUMN IF NOT EXISTS keeps it idempotent.
func addMissingColumns(db *gorm.DB) error {
	for _, m := range columnMigrations {
		if err := db.Exec(m.addSQL).Error; err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.table, m.column, err)
		}
		if m.backfill == "" {
			continue
		}
		if err := db.Exec(m.backfill).Error; err != nil {
			return fmt.Errorf("backfill %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

// createCustomIndexes creates any custom indexes that GORM might not handle
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// Phone is the natural key used to match inbound webhook messages;
		// without this two concurrent first-contact webhooks create
		// duplicate contacts.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone) WHERE deleted_at IS NULL`,

		// Board query: deals filtered by status, joined on contact
		`CREATE INDEX IF NOT EXISTS idx_deals_contact_status ON deals(contact_id, status)`,

		// Conversation thread: messages per deal in send order
		`CREATE INDEX IF NOT EXISTS idx_messages_deal_sent_at ON messages(deal_id, sent_at)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			log.Warn().Err(err).Str("index", idx).Msg("Failed to create index")
		}
	}

	return nil
}
