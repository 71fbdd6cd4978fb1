/*
Package lookup resolves dataset identifiers to artifact records held in one or more
named catalogs.

Each catalog is a flat CSV file of records.  A Resolver merges every catalog it was
given into a single view, removes rows that differ only in the catalog they came from,
and enforces the uniqueness rules for assemblies and stimulus sets:

	assembly      exactly one distinct record per identifier
	stimulus_set  at most one CSV table (with class) and one zip archive (without class)

Appending a record rewrites the named catalog file and invalidates the merged view.
Writers in separate processes are not coordinated.
*/
package lookup
