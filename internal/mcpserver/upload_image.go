package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
}

// uploadImage decodes a base64 payload and stores it through the image
// service, which owns the allow-lists, the size cap, and the random
// filename.
func (s *Server) uploadImage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	encoded, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid base64 data: %v", err)), nil
		}
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	upload, err := s.images.Save(filename, contentType, bytes.NewReader(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.Marshal(uploadResult{
		SavedPath:     upload.Path,
		MarkdownImage: fmt.Sprintf("![%s](%s)", upload.Name, upload.Path),
	})
	return mcp.NewToolResultText(string(out)), nil
}
