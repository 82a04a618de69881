// Package drive_tools provides the google_drive tool: file and folder
// management, sharing, comments, revisions and batch operations over the
// shared Google credential.
//
// Batch actions fan out over the tool's worker pool and report every
// item, so one failed file does not fail the whole call:
//
//	{"action": "batch_move", "file_ids": ["a", "b"], "new_parent_id": "folder"}
package drive_tools
