package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"blackjack-service/internal/model"
	appErr "blackjack-service/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultStartingBalance = 1000
	defaultTopupAmount     = 10
	defaultTopupInterval   = 60 * time.Second
)

const (
	LogTypeCreate = "create"
	LogTypeSettle = "settle"
	LogTypeTopup  = "topup"
)

type Config struct {
	StartingBalance int64
	TopupAmount     int64
	TopupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		StartingBalance: defaultStartingBalance,
		TopupAmount:     defaultTopupAmount,
		TopupInterval:   defaultTopupInterval,
	}
}

// Service is the balance ledger and profile book, keyed by external account id.
type Service struct {
	db  *gorm.DB
	cfg Config
	now func() time.Time
}

func NewService(db *gorm.DB, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.StartingBalance <= 0 {
		cfg.StartingBalance = def.StartingBalance
	}
	if cfg.TopupAmount <= 0 {
		cfg.TopupAmount = def.TopupAmount
	}
	if cfg.TopupInterval <= 0 {
		cfg.TopupInterval = def.TopupInterval
	}
	return &Service{db: db, cfg: cfg, now: time.Now}
}

// SetClock is for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type ProfileRequest struct {
	Email    string
	Username string
}

func (s *Service) GetProfile(ctx context.Context, accountID string) (*model.Account, error) {
	if accountID == "" {
		return nil, appErr.ErrAccountNotFound
	}
	var account model.Account
	err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpsertProfile creates the account with the starting balance, which needs
// both email and username, or patches whichever fields are given.
func (s *Service) UpsertProfile(ctx context.Context, accountID string, req ProfileRequest) (*model.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: userId required", appErr.ErrInvalidProfile)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	var account model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", accountID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if email == "" || username == "" {
				return fmt.Errorf("%w: email and username required to create profile", appErr.ErrInvalidProfile)
			}
			account = model.Account{
				ID:       accountID,
				Email:    email,
				Username: username,
				Balance:  s.cfg.StartingBalance,
			}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
			return tx.Create(&model.BillingLog{
				AccountID:    accountID,
				Type:         LogTypeCreate,
				Delta:        s.cfg.StartingBalance,
				BalanceAfter: s.cfg.StartingBalance,
			}).Error
		}
		if err != nil {
			return err
		}

		patch := map[string]any{}
		if email != "" {
			patch["email"] = email
		}
		if username != "" {
			patch["username"] = username
		}
		if len(patch) == 0 {
			return nil
		}
		if err := tx.Model(&account).Updates(patch).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", accountID).First(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ReadBalance returns 0 for accounts that do not exist yet.
func (s *Service) ReadBalance(ctx context.Context, accountID string) (int64, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Select("balance").Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// ApplyDelta adds delta to the balance in one atomic update and records it in
// the billing log. Unknown accounts are opened with the starting balance.
func (s *Service) ApplyDelta(ctx context.Context, accountID string, delta int64, memo string) error {
	if accountID == "" {
		return appErr.ErrAccountNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account := model.Account{ID: accountID, Balance: s.cfg.StartingBalance}
		if err := tx.Where("id = ?", accountID).FirstOrCreate(&account).Error; err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		if err := tx.Model(&model.Account{}).Where("id = ?", accountID).
			UpdateColumn("balance", gorm.Expr("balance + ?", delta)).Error; err != nil {
			return err
		}
		if err := tx.Select("balance").Where("id = ?", accountID).First(&account).Error; err != nil {
			return err
		}
		return tx.Create(&model.BillingLog{
			AccountID:    accountID,
			Type:         LogTypeSettle,
			Delta:        delta,
			BalanceAfter: account.Balance,
			MetaJSON:     mustJSON(map[string]any{"memo": memo}),
		}).Error
	})
}

// Topup credits TopupAmount at most once per TopupInterval. It reports
// whether a credit was made.
func (s *Service) Topup(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, appErr.ErrAccountNotFound
	}
	now := s.now()
	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the row lock makes concurrent heartbeats queue behind one credit
		var account model.Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", accountID).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrAccountNotFound
			}
			return err
		}
		if account.LastTopupAt != nil && now.Sub(*account.LastTopupAt) < s.cfg.TopupInterval {
			return nil
		}

		err = tx.Model(&model.Account{}).Where("id = ?", accountID).Updates(map[string]any{
			"balance":       gorm.Expr("balance + ?", s.cfg.TopupAmount),
			"last_topup_at": now,
		}).Error
		if err != nil {
			return err
		}
		var after model.Account
		if err := tx.Select("balance").Where("id = ?", accountID).First(&after).Error; err != nil {
			return err
		}
		credited = true
		return tx.Create(&model.BillingLog{
			AccountID:    accountID,
			Type:         LogTypeTopup,
			Delta:        s.cfg.TopupAmount,
			BalanceAfter: after.Balance,
		}).Error
	})
	return credited, err
}

// Balances returns the balance of every known id; unknown ids are absent.
func (s *Service) Balances(ctx context.Context, accountIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}
	var accounts []model.Account
	if err := s.db.WithContext(ctx).Select("id", "balance").Where("id IN ?", accountIDs).Find(&accounts).Error; err != nil {
		return nil, err
	}
	for _, a := range accounts {
		out[a.ID] = a.Balance
	}
	return out, nil
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
