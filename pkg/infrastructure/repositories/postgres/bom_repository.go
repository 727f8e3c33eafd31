package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// GetBOM returns a BOM with its items in sequence order
func (t *txn) GetBOM(ctx context.Context, id uuid.UUID) (*entities.BillOfMaterials, error) {
	var row bomRow
	if err := t.query(ctx, false).Preload("Items", orderedItems).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "bom", id.String())
	}
	return row.entity()
}

// ActiveBOMsForProduct returns the ACTIVE BOMs owned by a product, oldest first
func (t *txn) ActiveBOMsForProduct(ctx context.Context, productID uuid.UUID) ([]*entities.BillOfMaterials, error) {
	var rows []bomRow
	err := t.query(ctx, false).Preload("Items", orderedItems).
		Where("product_id = ? AND status = ?", productID, entities.BOMActive.String()).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query active BOMs: %w", err)
	}
	boms := make([]*entities.BillOfMaterials, 0, len(rows))
	for _, row := range rows {
		b, err := row.entity()
		if err != nil {
			return nil, err
		}
		boms = append(boms, b)
	}
	return boms, nil
}

// SaveBOM upserts a BOM and replaces its items
func (t *txn) SaveBOM(ctx context.Context, bom *entities.BillOfMaterials) error {
	row, items := fromBOM(bom)
	err := t.write(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "status", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return fmt.Errorf("BOM %s already exists", bom.Label())
		}
		return fmt.Errorf("save BOM %s: %w", bom.Label(), err)
	}

	if err := t.write(ctx).Where("bom_id = ?", bom.ID).Delete(&bomItemRow{}).Error; err != nil {
		return fmt.Errorf("clear BOM %s items: %w", bom.Label(), err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := t.write(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("insert BOM %s items: %w", bom.Label(), err)
	}
	return nil
}
