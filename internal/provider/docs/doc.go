// Package docs implements the DOCUMENT_RETRIEVAL capability over the sqlite
// full-text document index.
package docs
