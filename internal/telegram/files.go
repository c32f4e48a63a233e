// Package telegram resolves and downloads Bot API files for the photo proxy.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type FileClient struct {
	client *resty.Client
	token  string
}

func NewFileClient(token string) *FileClient {
	return &FileClient{
		client: resty.New().SetTimeout(15 * time.Second),
		token:  token,
	}
}

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FilePath string `json:"file_path"`
	} `json:"result"`
}

// FilePath resolves a file_id to a downloadable path via getFile.
func (c *FileClient) FilePath(ctx context.Context, fileID string) (string, error) {
	var result getFileResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("file_id", fileID).
		SetResult(&result).
		Get(fmt.Sprintf("https://api.telegram.org/bot%s/getFile", c.token))
	if err != nil {
		return "", fmt.Errorf("error calling getFile: %v", err)
	}
	if !resp.IsSuccess() || !result.OK || result.Result.FilePath == "" {
		return "", fmt.Errorf("getFile failed: status %d", resp.StatusCode())
	}
	return result.Result.FilePath, nil
}

// Download fetches the raw file bytes for a path returned by FilePath.
func (c *FileClient) Download(ctx context.Context, filePath string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.token, filePath))
	if err != nil {
		return nil, fmt.Errorf("error downloading file: %v", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("file download failed: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// ContentType guesses the image MIME type from the file path extension.
func ContentType(filePath string) string {
	parts := strings.Split(strings.ToLower(filePath), ".")
	if parts[len(parts)-1] == "png" {
		return "image/png"
	}
	return "image/jpeg"
}
