// Package refdata loads the read-only reference tables used by the
// pipeline: the ontology field rules, the units catalog and the enums
// catalog.
//
// Tables come from CSV files (FileSource) or from Postgres
// (PostgresSource), whose tables mirror the CSV columns:
//
//	reference_ontology_fields(canonical_type, field, supported_kinds, multi)
//	reference_units(id, category)
//	reference_enums(field, required_enum_true, required_enum_false)
//
// Store caches each table after its first successful load and implements
// core.ReferenceData.
package refdata
