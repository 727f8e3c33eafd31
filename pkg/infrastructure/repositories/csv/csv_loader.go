package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
)

// Scenario file names inside a scenario directory.
const (
	ProductsFile   = "products.csv"
	WarehousesFile = "warehouses.csv"
	BOMsFile       = "boms.csv"
	BatchesFile    = "batches.csv"
)

var (
	productsHeader   = []string{"code", "name", "category", "unit_of_measure", "minimum_stock", "critical_stock"}
	warehousesHeader = []string{"code", "name"}
	bomsHeader       = []string{"bom_code", "version", "product_code", "status", "component_code", "quantity", "notes"}
	batchesHeader    = []string{"batch_number", "product_code", "warehouse_code", "quantity", "unit_cost", "entry_date", "quality", "expiry_date"}
)

// Scenario is a parsed scenario directory, with every code already
// resolved to an entity id.
type Scenario struct {
	Products   []*entities.Product
	Warehouses []*entities.Warehouse
	BOMs       []*entities.BillOfMaterials
	Batches    []*entities.InventoryBatch

	productCodes   map[string]uuid.UUID
	warehouseCodes map[string]uuid.UUID
}

// ProductID resolves a product code loaded from the scenario
func (s *Scenario) ProductID(code string) (uuid.UUID, bool) {
	id, ok := s.productCodes[code]
	return id, ok
}

// WarehouseID resolves a warehouse code loaded from the scenario
func (s *Scenario) WarehouseID(code string) (uuid.UUID, bool) {
	id, ok := s.warehouseCodes[code]
	return id, ok
}

// Loader handles loading scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario parses a scenario directory. products.csv and warehouses.csv
// are required; boms.csv and batches.csv may be absent.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	s := &Scenario{
		productCodes:   make(map[string]uuid.UUID),
		warehouseCodes: make(map[string]uuid.UUID),
	}

	steps := []struct {
		file     string
		header   []string
		optional bool
		parse    func(s *Scenario, records [][]string) error
	}{
		{ProductsFile, productsHeader, false, parseProducts},
		{WarehousesFile, warehousesHeader, false, parseWarehouses},
		{BOMsFile, bomsHeader, true, parseBOMs},
		{BatchesFile, batchesHeader, true, parseBatches},
	}
	for _, step := range steps {
		records, err := readRecords(filepath.Join(dir, step.file), step.header)
		if err != nil {
			if step.optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if err := step.parse(s, records); err != nil {
			return nil, fmt.Errorf("%s %w", step.file, err)
		}
	}
	return s, nil
}

// Apply writes the scenario into a ledger in one transaction. BOM statuses
// are written as loaded.
func (s *Scenario) Apply(ctx context.Context, ledger repositories.Ledger) error {
	return ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for _, p := range s.Products {
			if err := tx.SaveProduct(ctx, p); err != nil {
				return err
			}
		}
		for _, w := range s.Warehouses {
			if err := tx.SaveWarehouse(ctx, w); err != nil {
				return err
			}
		}
		for _, b := range s.BOMs {
			if err := tx.SaveBOM(ctx, b); err != nil {
				return err
			}
		}
		for _, b := range s.Batches {
			if err := tx.SaveBatch(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// readRecords reads a CSV file and returns its data rows after checking the header
func readRecords(filename string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(expectedHeader)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s must have a header row", filename)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s header mismatch. Expected: %v, Got: %v", filename, expectedHeader, records[0])
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseProducts(s *Scenario, records [][]string) error {
	for i, record := range records {
		category, err := entities.ParseProductCategory(record[2])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		minimum, err := parseDecimal("minimum_stock", record[4], true)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		critical, err := parseDecimal("critical_stock", record[5], true)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}

		product, err := entities.NewProduct(record[0], record[1], category, record[3], minimum, critical)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if _, dup := s.productCodes[product.Code]; dup {
			return fmt.Errorf("row %d: duplicate product %s", i+2, product.Code)
		}
		s.productCodes[product.Code] = product.ID
		s.Products = append(s.Products, product)
	}
	return nil
}

func parseWarehouses(s *Scenario, records [][]string) error {
	for i, record := range records {
		warehouse, err := entities.NewWarehouse(record[0], record[1])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if _, dup := s.warehouseCodes[warehouse.Code]; dup {
			return fmt.Errorf("row %d: duplicate warehouse %s", i+2, warehouse.Code)
		}
		s.warehouseCodes[warehouse.Code] = warehouse.ID
		s.Warehouses = append(s.Warehouses, warehouse)
	}
	return nil
}

// parseBOMs groups one-item-per-row lines into BOMs keyed by code and version.
func parseBOMs(s *Scenario, records [][]string) error {
	byKey := make(map[string]*entities.BillOfMaterials)
	for i, record := range records {
		productID, ok := s.productCodes[record[2]]
		if !ok {
			return fmt.Errorf("row %d: unknown product %s", i+2, record[2])
		}
		componentID, ok := s.productCodes[record[4]]
		if !ok {
			return fmt.Errorf("row %d: unknown component %s", i+2, record[4])
		}
		status, err := entities.ParseBOMStatus(record[3])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		qty, err := parseDecimal("quantity", record[5], false)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}

		key := record[0] + "@" + record[1]
		bom, exists := byKey[key]
		if !exists {
			bom, err = entities.NewBillOfMaterials(record[0], record[0], record[1], productID)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
			bom.Status = status
			byKey[key] = bom
			s.BOMs = append(s.BOMs, bom)
		} else if bom.ProductID != productID || bom.Status != status {
			return fmt.Errorf("row %d: BOM %s changes product or status between rows", i+2, key)
		}

		if _, err := bom.AddItem(componentID, qty, record[6]); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return nil
}

func parseBatches(s *Scenario, records [][]string) error {
	for i, record := range records {
		productID, ok := s.productCodes[record[1]]
		if !ok {
			return fmt.Errorf("row %d: unknown product %s", i+2, record[1])
		}
		warehouseID, ok := s.warehouseCodes[record[2]]
		if !ok {
			return fmt.Errorf("row %d: unknown warehouse %s", i+2, record[2])
		}
		qty, err := parseDecimal("quantity", record[3], false)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		cost, err := parseDecimal("unit_cost", record[4], true)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		entryAt, err := parseTime("entry_date", record[5])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		quality, err := entities.ParseQualityStatus(record[6])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		var expiresAt *time.Time
		if strings.TrimSpace(record[7]) != "" {
			expiry, err := parseTime("expiry_date", record[7])
			if err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
			expiresAt = &expiry
		}

		batch, err := entities.NewInventoryBatch(record[0], productID, warehouseID, qty, cost, entryAt, quality, expiresAt)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		s.Batches = append(s.Batches, batch)
	}
	return nil
}

func parseDecimal(field, value string, zeroOK bool) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" && zeroOK {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, value)
	}
	return d, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates (midnight UTC).
func parseTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD or RFC 3339)", field, value)
	}
	return t, nil
}
