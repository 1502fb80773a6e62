// Package connectors contains the remote file sources the indexer reads from.
//
// Each connector implements driven.FileSourceFactory and driven.FileSource
// for one provider. Google Drive is the only provider today.
package connectors
