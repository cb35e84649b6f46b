package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crypto_dash/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the local SQLite store: the settings key-value table and coin metadata.
type Storage struct {
	db *gorm.DB
}

var _ domain.KeyValueStore = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at dbPath
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		return nil, errors.New("empty database path")
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.CoinInfo{}, &domain.Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Key-Value Operations
// ======================================================================================

// Get reads a setting. A missing key is reported with found=false, not an error.
func (s *Storage) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	var setting domain.Setting
	err := s.db.Where(&domain.Setting{Key: key}).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// Set writes a setting, replacing any previous value.
func (s *Storage) Set(key, value string) error {
	setting := domain.Setting{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&setting).Error
}

// ======================================================================================
// Coin Operations
// ======================================================================================

// UpsertCoin creates or updates coin metadata
func (s *Storage) UpsertCoin(coin *domain.CoinInfo) error {
	return s.db.Save(coin).Error
}

// GetCoin retrieves coin metadata by id
func (s *Storage) GetCoin(id string) (*domain.CoinInfo, error) {
	var coin domain.CoinInfo
	err := s.db.First(&coin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// GetAllCoins retrieves all coins
func (s *Storage) GetAllCoins() ([]domain.CoinInfo, error) {
	var coins []domain.CoinInfo
	err := s.db.Order("id").Find(&coins).Error
	return coins, err
}

// DeleteCoin deletes a coin from the database
func (s *Storage) DeleteCoin(id string) error {
	return s.db.Where("id = ?", id).Delete(&domain.CoinInfo{}).Error
}
