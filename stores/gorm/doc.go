//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the authcore Store.
// It supports any database that GORM supports (PostgreSQL, MySQL, SQLite,
// etc.) and is suitable for production deployments requiring relational
// database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: identity records with unique nullable email/phone columns
//   - accounts: OAuth provider links, keyed by (provider, provider_account_id)
//   - sessions: bearer sessions with soft revocation
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	store := gormstore.New(db)
//
// TranslateError must be enabled so uniqueness violations surface as
// gorm.ErrDuplicatedKey, which this package maps to authcore.ErrDuplicate.
package gorm
