// Package ingest loads text documents from disk, splits them into overlapping
// chunks and hands them to the document index.
package ingest
