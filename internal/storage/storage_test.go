package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		size        int64
		wantErr     bool
	}{
		{"pdf", "application/pdf", 1024, false},
		{"png with params", "image/png; charset=binary", 10, false},
		{"csv", "text/csv", 10, false},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", 10, false},
		{"executable", "application/x-msdownload", 10, true},
		{"html", "text/html", 10, true},
		{"too large", "image/jpeg", 5*1024*1024 + 1, true},
		{"at limit", "image/jpeg", 5 * 1024 * 1024, false},
		{"empty", "text/plain", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.contentType, tc.size, 5*1024*1024)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
		})
	}
}

func TestLocalStoreLayoutAndRoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	obj, err := store.Save(ctx, "Invoice Copy.PDF", "application/pdf", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Path, "2024/03/"), obj.Path)
	assert.True(t, strings.HasSuffix(obj.Filename, ".pdf"))
	assert.Equal(t, int64(5), obj.Size)

	rc, err := store.Open(ctx, obj.Path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete(ctx, obj.Path))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(obj.Path)))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, store.Delete(ctx, obj.Path), "deleting twice reports the missing file")
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, store.Delete(context.Background(), ".."))
}
