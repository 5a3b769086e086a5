// Package project manages review projects, share links and the participant
// set used for mentions and presence.
//
// Access rules:
//   - owner: read, write, delete, share configuration
//   - collaborator: read
//   - anyone: read when the project is public
//   - share-link visitor: read through the token, recorded as a participant
//
// Example Usage:
//
//	mgr := project.NewManager(store.Projects, store.Reviews, store.Users, metrics, log)
//	p, err := mgr.Create(ctx, who, types.ProjectRequest{Name: "Landing", URL: "https://example.com"})
//	view, err := mgr.EnableShare(ctx, who, p.ID, types.ShareRequest{Password: "s3cret"})
package project
