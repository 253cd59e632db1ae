// internal/testutil/testutil.go
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/database"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/services"
)

// pngHeader is the smallest content that passes image signature checks.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

// Config returns a configuration suitable for tests backed by an in-memory database.
func Config() *config.Config {
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Host: "localhost", Port: "8080"},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			Database:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			LogLevel:     "silent",
		},
		JWT:     config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
		Payment: config.PaymentConfig{Currency: "inr"},
		Email:   config.EmailConfig{FromEmail: "noreply@nepshop.test", AppName: "NepShop"},
		Store: config.StoreConfig{
			PageSize:          2,
			LowStockThreshold: 5,
			HomeListLimit:     8,
			OTPTTLMinutes:     15,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

// NewDB opens a migrated in-memory database that is closed when the test ends.
func NewDB(t testing.TB, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := database.Initialize(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { database.Close(db) })
	return db
}

func PNG(name string) *services.FileUpload {
	return &services.FileUpload{Filename: name, ContentType: "image/png", Content: append([]byte(nil), pngHeader...)}
}

func CreateUser(t testing.TB, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Name:    "User " + email,
		Email:   email,
		Address: "Thamel",
		City:    "Kathmandu",
		Country: "Nepal",
		Phone:   "9800000000",
		Role:    role,
	}
	require.NoError(t, user.SetPassword("secret123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct inserts a product with one image at the given price and stock.
func CreateProduct(t testing.TB, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Images: []models.ProductImage{{
			Position: 0,
			Image:    models.Image{StorageKey: "products/" + uuid.NewString() + ".png", URL: "https://cdn.test/" + name + ".png"},
		}},
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// Storage is an in-memory object store. Keys listed in FailDelete fail to delete.
// OnDelete, when set, runs after each successful delete outside the store lock.
type Storage struct {
	mu         sync.Mutex
	Objects    map[string]models.Image
	Deleted    []string
	FailUpload error
	FailDelete map[string]error
	OnDelete   func(key string)
}

func NewStorage() *Storage {
	return &Storage{Objects: map[string]models.Image{}, FailDelete: map[string]error{}}
}

func (s *Storage) Upload(ctx context.Context, file *services.FileUpload, folder string) (models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpload != nil {
		return models.Image{}, s.FailUpload
	}
	key := folder + "/" + uuid.NewString() + "-" + file.Filename
	image := models.Image{StorageKey: key, URL: "https://cdn.test/" + key}
	s.Objects[key] = image
	return image, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	if err, ok := s.FailDelete[key]; ok {
		s.mu.Unlock()
		return err
	}
	delete(s.Objects, key)
	s.Deleted = append(s.Deleted, key)
	hook := s.OnDelete
	s.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return nil
}

func (s *Storage) DeletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Deleted...)
}

type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer records messages instead of sending them. A non-nil Err fails every send.
type Mailer struct {
	mu   sync.Mutex
	Sent []Mail
	Err  error
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Mail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *Mailer) Messages() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.Sent...)
}

// Payments is a fake processor that records the amounts it was asked to charge.
type Payments struct {
	mu      sync.Mutex
	Amounts []int64
	Err     error
}

var ErrProcessorDown = errors.New("processor unavailable")

func (p *Payments) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*services.ProcessorIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	p.Amounts = append(p.Amounts, amount)
	return &services.ProcessorIntent{
		ID:           fmt.Sprintf("pi_%d", len(p.Amounts)),
		ClientSecret: fmt.Sprintf("pi_%d_secret", len(p.Amounts)),
		Status:       "requires_payment_method",
	}, nil
}
