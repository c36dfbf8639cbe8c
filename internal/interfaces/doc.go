// Package interfaces collects the compile-time checks that tie concrete
// types to the interfaces their consumers declare.
//
// Consumers own their interfaces: the HTTP layer declares the stores it reads
// (internal/http/stores.go), the library declares its Catalog and
// FileRemover, the task queue declares what its processors clean, and the
// scheduler declares the Enqueuer it feeds. Implementations live in the
// database repositories, the storage providers, the audit service and the
// metrics registry.
//
// # Adding a New Storage Provider
//
//  1. Create internal/storage/providers/<name>/ with a Client that
//     implements storage.Client, mapping missing objects to storage.ErrNotFound
//     and validating keys with storage.CleanKey.
//
//  2. Add a config.StorageProvider constant and a case in
//     entrypoint.newStorage.
//
//  3. Add a check below:
//
//     var _ storage.Client = (*gcs.Client)(nil)
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Declare the interface next to its consumer and add a check in checks.go.
package interfaces
