//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the
// authcore Store, suitable for App Engine and Cloud Run deployments.
//
// # Entity Design
//
//   - User: keyed by user id
//   - Account: keyed by provider + ":" + providerAccountID, so the
//     one-link-per-external-identity invariant rides on key uniqueness
//   - Session: keyed by session id, with an indexed token property
//
// Datastore cannot enforce uniqueness on non-key properties, so email and
// phone uniqueness is checked with a query inside the create path. Under a
// write race two users with the same email could slip through; hosts that
// need a hard guarantee should use the gorm store.
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.New(client, "") // empty namespace is the default namespace
package gae
