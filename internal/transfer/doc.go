// Package transfer moves exported collections in and out of the process.
//
// An export document is canonical JSON of the form
//
//	{"scripts":[{"code":...,"id":...,"options":{"requiresJQuery":...},"title":...}]}
//
// Session state is never part of an export. Names ending in ".lz4" are
// written as an lz4 frame; Decode detects the frame by its magic bytes, so
// the name is not needed on the way back in.
//
// Two FileTransfer backends are provided: LocalDir writes files atomically
// under a directory, MinIO stores objects in an S3-compatible bucket.
package transfer
