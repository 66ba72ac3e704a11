// Package xtypes holds the data model shared by every component of the
// extended JSON Schema validator: documents, path templates, extension
// sites, key tuples, and the Issue/Issues error model. Nothing in this
// package imports another xschema package, so it is safe for every
// component (pathtmpl, registry, traverse, extract, docstore, cache,
// provider, xref, jsvalidate, report) to depend on it.
package xtypes
