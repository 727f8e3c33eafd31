package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/memory"
)

const bicycleDir = "../../../../scenarios/bicycle"

func writeScenario(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

const (
	minimalProducts = "code,name,category,unit_of_measure,minimum_stock,critical_stock\n" +
		"P,Product,FINISHED,ea,,\n" +
		"C,Component,RAW_MATERIAL,kg,10,2\n"
	minimalWarehouses = "code,name\nMAIN,Main\n"
)

func TestLoader_LoadScenario_Bicycle(t *testing.T) {
	s, err := NewLoader().LoadScenario(bicycleDir)
	require.NoError(t, err)

	assert.Len(t, s.Products, 8)
	assert.Len(t, s.Warehouses, 2)
	assert.Len(t, s.BOMs, 4)
	assert.Len(t, s.Batches, 9)

	wheel, ok := s.ProductID("WHEEL")
	require.True(t, ok)
	var v2 *entities.BillOfMaterials
	for _, b := range s.BOMs {
		if b.ProductID == wheel && b.Version == "v2" {
			v2 = b
		}
	}
	require.NotNil(t, v2)
	assert.Equal(t, entities.BOMDraft, v2.Status)
	require.Len(t, v2.Items, 2)
	assert.True(t, v2.Items[1].Quantity.Equal(decimal.NewFromInt(28)))
	assert.Equal(t, "lighter build", v2.Items[1].Notes)

	var box *entities.InventoryBatch
	for _, b := range s.Batches {
		if b.BatchNumber == "BOX-0310" {
			box = b
		}
	}
	require.NotNil(t, box)
	require.NotNil(t, box.ExpiresAt)
	assert.Equal(t, 2026, box.ExpiresAt.Year())
}

func TestScenario_Apply(t *testing.T) {
	s, err := NewLoader().LoadScenario(bicycleDir)
	require.NoError(t, err)

	store := memory.NewStore()
	require.NoError(t, s.Apply(context.Background(), store))

	wheel, _ := s.ProductID("WHEEL")
	tube, _ := s.ProductID("TUBE")
	mainWH, _ := s.WarehouseID("MAIN")
	err = store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		active, err := tx.ActiveBOMsForProduct(ctx, wheel)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "v1", active[0].Version)

		eligible, err := tx.EligibleBatches(ctx, tube, mainWH, false)
		require.NoError(t, err)
		require.Len(t, eligible, 2)
		assert.Equal(t, "TUBE-0301", eligible[0].BatchNumber)
		return nil
	})
	require.NoError(t, err)
}

func TestLoader_OptionalFiles(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		ProductsFile:   minimalProducts,
		WarehousesFile: minimalWarehouses,
	})

	s, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Len(t, s.Products, 2)
	assert.Empty(t, s.BOMs)
	assert.Empty(t, s.Batches)
	assert.True(t, s.Products[0].MinimumStock.IsZero())
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "missing products",
			files:   map[string]string{WarehousesFile: minimalWarehouses},
			wantErr: "failed to open",
		},
		{
			name: "header mismatch",
			files: map[string]string{
				ProductsFile:   minimalProducts,
				WarehousesFile: "id,label\nMAIN,Main\n",
			},
			wantErr: "header mismatch",
		},
		{
			name: "unknown component",
			files: map[string]string{
				ProductsFile:   minimalProducts,
				WarehousesFile: minimalWarehouses,
				BOMsFile: "bom_code,version,product_code,status,component_code,quantity,notes\n" +
					"BOM-P,v1,P,ACTIVE,X,1,\n",
			},
			wantErr: "row 2: unknown component X",
		},
		{
			name: "non-positive quantity",
			files: map[string]string{
				ProductsFile:   minimalProducts,
				WarehousesFile: minimalWarehouses,
				BOMsFile: "bom_code,version,product_code,status,component_code,quantity,notes\n" +
					"BOM-P,v1,P,ACTIVE,C,0,\n",
			},
			wantErr: "row 2",
		},
		{
			name: "status changes between rows",
			files: map[string]string{
				ProductsFile:   minimalProducts,
				WarehousesFile: minimalWarehouses,
				BOMsFile: "bom_code,version,product_code,status,component_code,quantity,notes\n" +
					"BOM-P,v1,P,ACTIVE,C,1,\n" +
					"BOM-P,v1,P,DRAFT,C,1,\n",
			},
			wantErr: "row 3",
		},
		{
			name: "bad entry date",
			files: map[string]string{
				ProductsFile:   minimalProducts,
				WarehousesFile: minimalWarehouses,
				BatchesFile: "batch_number,product_code,warehouse_code,quantity,unit_cost,entry_date,quality,expiry_date\n" +
					"B1,C,MAIN,5,1,yesterday,APPROVED,\n",
			},
			wantErr: "invalid entry_date format",
		},
		{
			name: "unknown quality",
			files: map[string]string{
				ProductsFile:   minimalProducts,
				WarehousesFile: minimalWarehouses,
				BatchesFile: "batch_number,product_code,warehouse_code,quantity,unit_cost,entry_date,quality,expiry_date\n" +
					"B1,C,MAIN,5,1,2025-03-01,GOOD,\n",
			},
			wantErr: "row 2",
		},
		{
			name: "duplicate product",
			files: map[string]string{
				ProductsFile:   minimalProducts + "P,Again,FINISHED,ea,,\n",
				WarehousesFile: minimalWarehouses,
			},
			wantErr: "duplicate product P",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadScenario(writeScenario(t, tt.files))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
