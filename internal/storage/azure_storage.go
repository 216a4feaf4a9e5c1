package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// ArtifactStore persists analysis artifacts (heatmaps, annotation
// overlays) and returns a retrievable URL for each.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

type azureArtifactStore struct {
	client    *azblob.Client
	account   string
	container string
}

func NewAzureArtifactStore(accountName, accountKey, container string) (ArtifactStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureArtifactStore{
		client:    client,
		account:   accountName,
		container: container,
	}, nil
}

func (s *azureArtifactStore) PutArtifact(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("artifact upload failed: %w", err)
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", s.account, s.container, name), nil
}

// NoopArtifactStore is used when no storage account is configured.
// Artifacts are dropped and no URL is reported.
type NoopArtifactStore struct{}

func (NoopArtifactStore) PutArtifact(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	return "", nil
}
