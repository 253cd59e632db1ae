// internal/services/storage_service_test.go
package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/testutil"
)

func TestFileUploadValidate(t *testing.T) {
	assert.NoError(t, testutil.PNG("photo.PNG").Validate())
	assert.NoError(t, (&services.FileUpload{Filename: "photo.jpg", Content: []byte{0xFF, 0xD8, 0xFF, 0xE0}}).Validate())

	cases := map[string]*services.FileUpload{
		"empty":        {Filename: "photo.png"},
		"wrong ext":    {Filename: "photo.exe", Content: testutil.PNG("x.png").Content},
		"not an image": {Filename: "photo.png", Content: []byte("plain text")},
		"too large":    {Filename: "photo.png", Content: append(testutil.PNG("x.png").Content, make([]byte, 5*1024*1024)...)},
	}
	for name, upload := range cases {
		assert.Error(t, upload.Validate(), name)
	}
}

func TestStorageServiceWithoutS3(t *testing.T) {
	storage, err := services.NewStorageService(testutil.Config())
	require.NoError(t, err)

	image, err := storage.Upload(context.Background(), testutil.PNG("front.png"), services.FolderProducts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(image.StorageKey, "products/"))
	assert.True(t, strings.HasSuffix(image.StorageKey, ".png"))
	assert.Contains(t, image.URL, image.StorageKey)

	assert.NoError(t, storage.Delete(context.Background(), image.StorageKey))

	_, err = storage.Upload(context.Background(), &services.FileUpload{Filename: "a.txt", Content: []byte("x")}, services.FolderAvatars)
	assert.Error(t, err)
}
