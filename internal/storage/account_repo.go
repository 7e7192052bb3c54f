package storage

import (
	"fmt"
	"time"

	"github.com/jbelanger/exitbook/internal/model"
	"gorm.io/gorm"
)

// AccountRepo persists users and the accounts they own. Not one of
// spec §4.12's four named repository contracts, but every contract
// there hangs off an account id, so this is the supplement that makes
// the others runnable.
type AccountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// DefaultUserID is the single-tenant user every CLI-driven import
// attaches to, per spec §4.11 step 1 ("ensure default user").
const DefaultUserID = "default"

// EnsureDefaultUser creates the single-tenant user row if absent.
func (repo *AccountRepo) EnsureDefaultUser() error {
	result := repo.db.FirstOrCreate(&UserRow{ID: DefaultUserID, CreatedAt: time.Now().UTC()}, "id = ?", DefaultUserID)
	if result.Error != nil {
		return fmt.Errorf("storage: ensuring default user: %w", result.Error)
	}
	return nil
}

func accountToRow(a model.Account) AccountRow {
	return AccountRow{
		ID:              a.ID,
		UserID:          a.UserID,
		Type:            string(a.Type),
		Identifier:      a.Identifier,
		ChainOrExchange: a.ChainOrExchange,
		ProviderName:    a.ProviderName,
		ParentAccountID: a.ParentAccountID,
		DerivationPath:  a.DerivationPath,
		CreatedAt:       time.Now().UTC(),
	}
}

func rowToAccount(r AccountRow) model.Account {
	return model.Account{
		ID:              r.ID,
		UserID:          r.UserID,
		Type:            model.AccountType(r.Type),
		Identifier:      r.Identifier,
		ChainOrExchange: r.ChainOrExchange,
		ProviderName:    r.ProviderName,
		ParentAccountID: r.ParentAccountID,
		DerivationPath:  r.DerivationPath,
	}
}

// Create inserts a new account (parent, child, or standalone).
func (repo *AccountRepo) Create(a model.Account) error {
	row := accountToRow(a)
	if result := repo.db.Create(&row); result.Error != nil {
		return fmt.Errorf("storage: creating account %s: %w", a.ID, result.Error)
	}
	return nil
}

// Get returns a single account by id.
func (repo *AccountRepo) Get(id string) (*model.Account, error) {
	var row AccountRow
	result := repo.db.Where("id = ?", id).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: getting account %s: %w", id, result.Error)
	}
	a := rowToAccount(row)
	return &a, nil
}

// FindByIdentifier returns an existing account matching an exact
// (chain_or_exchange, identifier) pair, used to detect a re-run import
// of the same address/api-key/csv-directory instead of duplicating the
// account row.
func (repo *AccountRepo) FindByIdentifier(chainOrExchange, identifier string) (*model.Account, error) {
	var row AccountRow
	result := repo.db.Where("chain_or_exchange = ? AND identifier = ?", chainOrExchange, identifier).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: finding account by identifier: %w", result.Error)
	}
	a := rowToAccount(row)
	return &a, nil
}

// FindAllForUser returns every account belonging to userID, parents
// and children alike, in creation order.
func (repo *AccountRepo) FindAllForUser(userID string) ([]model.Account, error) {
	var rows []AccountRow
	result := repo.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("storage: listing accounts for user %s: %w", userID, result.Error)
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToAccount(r))
	}
	return out, nil
}

// Children returns every account whose ParentAccountID is parentID,
// in creation order (the xpub derivation order).
func (repo *AccountRepo) Children(parentID string) ([]model.Account, error) {
	var rows []AccountRow
	result := repo.db.Where("parent_account_id = ?", parentID).Order("created_at ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("storage: listing children of %s: %w", parentID, result.Error)
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToAccount(r))
	}
	return out, nil
}
