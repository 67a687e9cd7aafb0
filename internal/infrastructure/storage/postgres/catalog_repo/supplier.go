package catalog_repo

import (
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/infrastructure/storage/postgres"
)

const suppliersTable = "suppliers"

// SupplierRepo implements supplier.Directory.
type SupplierRepo struct {
	*BaseCatalogRepo[supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txm *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[supplier.Supplier](txm, suppliersTable),
	}
}

var _ supplier.Directory = (*SupplierRepo)(nil)
