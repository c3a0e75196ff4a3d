package api

import (
	"github.com/starford/othala/internal/gitvcs"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/vault"
)

// CreateNoteRequest is the request body for creating or updating a note.
type CreateNoteRequest struct {
	Content string `json:"content" example:"# Hello\nWorld"`
}

// TransferRequest is the request body for move and copy operations.
type TransferRequest struct {
	Destination string `json:"destination" example:"archive/hello.md" validate:"required"`
}

// RestoreRequest selects the revision to restore a note to.
type RestoreRequest struct {
	Hash string `json:"hash" example:"a1b2c3d4" validate:"required"`
}

// LoginRequest is the password login body.
type LoginRequest struct {
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type" example:"bearer" validate:"required"`
}

// PathResponse acknowledges a mutation with the resulting vault path.
type PathResponse struct {
	Path string `json:"path" example:"/notes/hello.md" validate:"required"`
}

// HistoryResponse wraps a note's commit history, newest first.
type HistoryResponse struct {
	Path    string               `json:"path" validate:"required"`
	History []gitvcs.CommitRecord `json:"history" validate:"required"`
}

// VersionResponse carries a note's content at one revision.
type VersionResponse struct {
	Path    string `json:"path" validate:"required"`
	Hash    string `json:"hash" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status string        `json:"status" example:"ok" validate:"required"`
	Git    gitvcs.Status `json:"git" validate:"required"`
}

// ConfigResponse exposes the client-relevant runtime flags.
type ConfigResponse struct {
	AuthEnabled bool `json:"auth_enabled"`
}

// VerifyResponse confirms a valid token.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = vault.NoteRecord

// FileTreeNode is one node of the vault tree (aliased from the domain layer).
type FileTreeNode = vault.FileTreeNode

// DirDetail is the directory listing response (aliased from the domain layer).
type DirDetail = vault.DirRecord

// SearchResponse wraps search results (aliased from the domain layer).
type SearchResponse = search.Response
