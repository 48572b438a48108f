// Package objectstore uploads binaries to the image CDN and returns
// retrievable URLs.
package objectstore

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/nexushq/storefront-api/internal/domain/store"
)

var _ store.Uploader = (*Client)(nil)

// ClientConfig holds the object-storage endpoint and credentials.
type ClientConfig struct {
	UploadURL  string
	PrivateKey string
}

// Client uploads files to an ImageKit-style HTTP upload API.
type Client struct {
	http       *http.Client
	uploadURL  string
	privateKey string
}

// NewClient creates an upload Client.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:       httpClient,
		uploadURL:  cfg.UploadURL,
		privateKey: cfg.PrivateKey,
	}
}

// Upload sends the binary with a file name and folder hint and returns the
// stored object's URL.
func (c *Client) Upload(ctx context.Context, name, folder string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", errors.Wrap(err, "build upload form")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "write upload form")
	}
	if err := mw.WriteField("fileName", name); err != nil {
		return "", errors.Wrap(err, "write upload form")
	}
	if err := mw.WriteField("folder", folder); err != nil {
		return "", errors.Wrap(err, "write upload form")
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "finalize upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call object storage")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read upload response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("object storage returned %d", resp.StatusCode)
	}

	url, err := decodeUploadURL(respBody)
	if err != nil {
		return "", errors.Wrap(err, "decode upload response")
	}
	return url, nil
}

func decodeUploadURL(body []byte) (string, error) {
	var url string
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "url" {
			return d.Skip()
		}
		v, err := d.Str()
		url = v
		return err
	}); err != nil {
		return "", err
	}
	if url == "" {
		return "", errors.New("upload response has no url")
	}
	return url, nil
}
