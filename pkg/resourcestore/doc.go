// Package resourcestore provides the resource store behind the gateway: files
// and link references with metadata, full-text search, pagination, download
// accounting and owner-only deletion.
//
// A single Service orchestrates a metadata Repository and a BlobStore. File
// content lives in the blob store under a generated key, never a caller
// supplied path; the metadata record only references that key. Implementations
// of repositories (memory, Postgres) and blob stores (memory, filesystem, S3)
// are provided under subpackages.
//
// # Consistency between the two stores
//
// Writes to the blob store and the metadata store are not transactional.
// Create validates every field before the blob is written and removes the blob
// again if the metadata write fails. Delete removes the blob first and the
// metadata record second, so a failure in between can leave metadata without
// content, which download then reports as not found.
package resourcestore
