package storage

import (
	"fmt"

	"github.com/jbelanger/exitbook/internal/model"
	"gorm.io/gorm"
)

// TransactionLinkRepo persists inferred cross-account transfer links
// (spec §4.12's TransactionLinkRepo contract).
type TransactionLinkRepo struct {
	db *gorm.DB
}

func NewTransactionLinkRepo(db *gorm.DB) *TransactionLinkRepo {
	return &TransactionLinkRepo{db: db}
}

func linkToRow(l model.TransactionLink) (TransactionLinkRow, error) {
	meta, err := jsonText(l.Metadata)
	if err != nil {
		return TransactionLinkRow{}, fmt.Errorf("storage: marshaling link metadata: %w", err)
	}
	return TransactionLinkRow{
		ID:                l.ID,
		FromTransactionID: l.FromTransactionID,
		ToTransactionID:   l.ToTransactionID,
		FromAccountID:     l.FromAccountID,
		ToAccountID:       l.ToAccountID,
		Asset:             l.Asset,
		Status:            string(l.Status),
		Confidence:        l.Confidence,
		CreatedAt:         l.CreatedAt,
		Metadata:          meta,
	}, nil
}

func rowToLink(r TransactionLinkRow) (model.TransactionLink, error) {
	meta, err := jsonParse[map[string]any](r.Metadata)
	if err != nil {
		return model.TransactionLink{}, fmt.Errorf("storage: parsing link metadata: %w", err)
	}
	return model.TransactionLink{
		ID:                r.ID,
		FromTransactionID: r.FromTransactionID,
		ToTransactionID:   r.ToTransactionID,
		FromAccountID:     r.FromAccountID,
		ToAccountID:       r.ToAccountID,
		Asset:             r.Asset,
		Status:            model.TransactionLinkStatus(r.Status),
		Confidence:        r.Confidence,
		CreatedAt:         r.CreatedAt,
		Metadata:          meta,
	}, nil
}

// Create inserts a newly proposed or confirmed link.
func (repo *TransactionLinkRepo) Create(link model.TransactionLink) error {
	row, err := linkToRow(link)
	if err != nil {
		return err
	}
	if result := repo.db.Create(&row); result.Error != nil {
		return fmt.Errorf("storage: creating transaction link %s: %w", link.ID, result.Error)
	}
	return nil
}

// UpdateStatus transitions a link between proposed/confirmed/rejected
// (CLI verb `links confirm|reject`, spec §6).
func (repo *TransactionLinkRepo) UpdateStatus(id string, status model.TransactionLinkStatus) error {
	result := repo.db.Model(&TransactionLinkRow{}).Where("id = ?", id).Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("storage: updating link %s status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("storage: updating link %s status: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// FindByTransactionIDs returns every link touching any of the given
// transaction ids, either as the from- or to-side.
func (repo *TransactionLinkRepo) FindByTransactionIDs(ids []string) ([]model.TransactionLink, error) {
	var rows []TransactionLinkRow
	result := repo.db.Where("from_transaction_id IN ? OR to_transaction_id IN ?", ids, ids).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("storage: finding links by transaction ids: %w", result.Error)
	}
	out := make([]model.TransactionLink, 0, len(rows))
	for _, r := range rows {
		l, err := rowToLink(r)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// FindAll returns every link, optionally scoped to a status, newest
// first (CLI verb `links view`, spec §6).
func (repo *TransactionLinkRepo) FindAll(status model.TransactionLinkStatus) ([]model.TransactionLink, error) {
	q := repo.db.Model(&TransactionLinkRow{})
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	q = q.Order("created_at DESC")

	var rows []TransactionLinkRow
	if result := q.Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("storage: listing links: %w", result.Error)
	}
	out := make([]model.TransactionLink, 0, len(rows))
	for _, r := range rows {
		l, err := rowToLink(r)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Get returns a single link by id, or nil if it does not exist.
func (repo *TransactionLinkRepo) Get(id string) (*model.TransactionLink, error) {
	var row TransactionLinkRow
	result := repo.db.Where("id = ?", id).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: getting link %s: %w", id, result.Error)
	}
	l, err := rowToLink(row)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Count returns the total number of links, optionally scoped to a
// status, for the `links view` CLI summary.
func (repo *TransactionLinkRepo) Count(status model.TransactionLinkStatus) (int64, error) {
	q := repo.db.Model(&TransactionLinkRow{})
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var count int64
	if result := q.Count(&count); result.Error != nil {
		return 0, fmt.Errorf("storage: counting links: %w", result.Error)
	}
	return count, nil
}
