// Package drive wraps the Google Drive v3 API with the file, folder,
// permission, comment and revision calls the google_drive tool needs.
//
// A Client is cheap. Tools build one per call around the *drive.Service
// held by google.Auth so that a refreshed credential is picked up
// without restarting anything.
//
//	c := drive.NewClient(svc)
//	files, err := c.ListFiles(ctx, drive.ListQuery{
//	    Query:    drive.SearchQuery{MimeType: "application/pdf"}.String(),
//	    PageSize: 10,
//	})
package drive
