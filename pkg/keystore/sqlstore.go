package keystore

import (
	"errors"
	"fmt"
	"time"

	"github.com/nightpass/nightpass/internal/vault"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLStore)(nil)

type credentialRow struct {
	Namespace string    `gorm:"column:namespace;primaryKey"`
	Key       string    `gorm:"column:cred_key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (credentialRow) TableName() string { return "credentials" }

// SQLStore keeps credentials in a SQLite database, sealed with the same vault key
// scheme as the file store. Several namespaces may share one database file.
type SQLStore struct {
	db        *gorm.DB
	namespace string
	key       []byte
	log       *zap.Logger
}

// OpenSQLStore opens (or creates) the database at dsn.
func OpenSQLStore(dsn, namespace, passphrase string, log *zap.Logger) (*SQLStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	key, err := vault.DeriveKey(passphrase, namespace)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("open keystore database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one writer keeps replace semantics simple and lets ":memory:" work
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&credentialRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate keystore database: %w", err)
	}

	return &SQLStore{db: db, namespace: namespace, key: key, log: log}, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Get(key string) (string, bool) {
	var row credentialRow
	err := s.db.Where("namespace = ? AND cred_key = ?", s.namespace, key).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("keystore: read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	v, err := vault.Decrypt(row.Value, s.key)
	if err != nil {
		s.log.Warn("keystore: unreadable entry", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, true
}

// Save drops the prior value before writing the new one, so a failed write leaves
// the key absent rather than stale.
func (s *SQLStore) Save(key, value string) {
	s.Delete(key)

	ct, err := vault.Encrypt(value, s.key)
	if err != nil {
		s.log.Warn("keystore: encrypt failed", zap.String("key", key), zap.Error(err))
		return
	}

	err = s.db.Create(&credentialRow{
		Namespace: s.namespace,
		Key:       key,
		Value:     ct,
		UpdatedAt: time.Now().UTC(),
	}).Error
	if err != nil {
		s.log.Warn("keystore: save failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *SQLStore) Delete(key string) {
	err := s.db.Where("namespace = ? AND cred_key = ?", s.namespace, key).Delete(&credentialRow{}).Error
	if err != nil {
		s.log.Warn("keystore: delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *SQLStore) ClearAll() {
	err := s.db.Where("namespace = ?", s.namespace).Delete(&credentialRow{}).Error
	if err != nil {
		s.log.Warn("keystore: clear failed", zap.Error(err))
	}
}
