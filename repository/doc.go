// Package repository provides a generic repository built on Bun: typed field
// schemas, dynamic filtering, sorting and pagination, get-or-create inserts,
// exactly-one updates and deletes, and a join-table link repository.
package repository
