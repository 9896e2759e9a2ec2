package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageObserverRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	observer, err := NewStorageObserver("test", reg)
	require.NoError(t, err)

	observer.RecordUpload(10*time.Millisecond, 100, nil)
	observer.RecordUpload(10*time.Millisecond, 50, errors.New("denied"))
	observer.RecordDelete(time.Millisecond, errors.New("gone"))

	assert.Equal(t, float64(100), testutil.ToFloat64(observer.uploadedBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(observer.errors.WithLabelValues("upload")))
	assert.Equal(t, float64(1), testutil.ToFloat64(observer.errors.WithLabelValues("delete")))
}

func TestStorageObserverReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewStorageObserver("test", reg)
	require.NoError(t, err)
	second, err := NewStorageObserver("test", reg)
	require.NoError(t, err)

	second.RecordUpload(time.Millisecond, 7, nil)
	assert.Equal(t, float64(7), testutil.ToFloat64(first.uploadedBytes))
}

func TestNilObserverIsSafe(t *testing.T) {
	var observer *StorageObserver
	observer.RecordUpload(time.Millisecond, 1, nil)
	observer.RecordDelete(time.Millisecond, nil)
}
