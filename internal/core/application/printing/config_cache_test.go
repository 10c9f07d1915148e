package printing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cafe/internal/core/application/printing"
	"cafe/internal/core/domain/model/kernel"
	printmodel "cafe/internal/core/domain/model/printing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConfigCache_LoadsOnceAndInvalidates(t *testing.T) {
	merchantID := kernel.NewUUID()
	first, err := printmodel.NewMerchantProfile(merchantID, "Southern Stories", false, nil)
	require.NoError(t, err)
	second, err := printmodel.NewMerchantProfile(merchantID, "Southern Stories", true, nil)
	require.NoError(t, err)

	source := &MockProfileSource{}
	source.On("Get", mock.Anything, merchantID).
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(first, nil).Once()
	cache := printing.NewConfigCache(source)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, getErr := cache.Get(t.Context(), merchantID)
			assert.NoError(t, getErr)
			assert.False(t, got.ManualOnly())
		}()
	}
	wg.Wait()
	source.AssertNumberOfCalls(t, "Get", 1)
	assert.Equal(t, 1, cache.Len())

	source.On("Get", mock.Anything, merchantID).Return(second, nil).Once()
	cache.Invalidate(merchantID)
	assert.Equal(t, 0, cache.Len())

	got, err := cache.Get(t.Context(), merchantID)
	require.NoError(t, err)
	assert.True(t, got.ManualOnly())
	source.AssertExpectations(t)
}

func TestConfigCache_DoesNotCacheErrors(t *testing.T) {
	merchantID := kernel.NewUUID()
	profile, err := printmodel.NewMerchantProfile(merchantID, "Juice World", false, nil)
	require.NoError(t, err)

	source := &MockProfileSource{}
	source.On("Get", mock.Anything, merchantID).Return(nil, errors.New("timeout")).Once()
	source.On("Get", mock.Anything, merchantID).Return(profile, nil).Once()
	cache := printing.NewConfigCache(source)

	_, err = cache.Get(t.Context(), merchantID)
	require.Error(t, err)

	got, err := cache.Get(t.Context(), merchantID)
	require.NoError(t, err)
	assert.Equal(t, "Juice World", got.Name())
}

func TestConfigCache_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	merchantID := kernel.NewUUID()
	profile, err := printmodel.NewMerchantProfile(merchantID, "Nescafe Corner", false, nil)
	require.NoError(t, err)

	loading := make(chan struct{})
	proceed := make(chan struct{})
	loadCtxErr := make(chan error, 1)
	source := &MockProfileSource{}
	source.On("Get", mock.Anything, merchantID).
		Run(func(args mock.Arguments) {
			close(loading)
			<-proceed
			loadCtxErr <- args.Get(0).(context.Context).Err()
		}).
		Return(profile, nil).Once()
	cache := printing.NewConfigCache(source, printing.WithLoadTimeout(time.Second))

	ctx, cancel := context.WithCancel(t.Context())
	first := make(chan error, 1)
	go func() {
		_, getErr := cache.Get(ctx, merchantID)
		first <- getErr
	}()
	<-loading

	second := make(chan error, 1)
	go func() {
		_, getErr := cache.Get(t.Context(), merchantID)
		second <- getErr
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(proceed)
	assert.NoError(t, <-second)
	assert.NoError(t, <-loadCtxErr)
	assert.Equal(t, 1, cache.Len())
	source.AssertNumberOfCalls(t, "Get", 1)
}
