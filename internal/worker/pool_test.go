package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"campaignhub/internal/models"
	"campaignhub/internal/testutil"
)

func TestPool_NeverExceedsWorkerCount(t *testing.T) {
	logger, _ := test.NewNullLogger()

	var running, peak, done int32
	handler := func(ctx context.Context, job models.DeliveryJob) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		atomic.AddInt32(&done, 1)
		return nil
	}

	pool := NewPool(3, 2, handler, logger)
	for i := 0; i < 40; i++ {
		testutil.AssertNoError(t, pool.Submit(context.Background(), models.DeliveryJob{CampaignID: 1, CustomerID: i}))
	}
	testutil.AssertNoError(t, pool.Close(context.Background()))

	testutil.AssertEqual(t, atomic.LoadInt32(&done), int32(40))
	if peak := atomic.LoadInt32(&peak); peak > 3 {
		t.Errorf("Expected at most 3 concurrent jobs, saw %d", peak)
	}
}

func TestPool_SubmitBlocksWhenFull(t *testing.T) {
	logger, _ := test.NewNullLogger()

	release := make(chan struct{})
	handler := func(ctx context.Context, job models.DeliveryJob) error {
		<-release
		return nil
	}

	pool := NewPool(1, 1, handler, logger)

	// one job held by the worker, one buffered
	testutil.AssertNoError(t, pool.Submit(context.Background(), models.DeliveryJob{CustomerID: 1}))
	testutil.AssertNoError(t, pool.Submit(context.Background(), models.DeliveryJob{CustomerID: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// the worker may not have picked up job 1 yet, so allow one more slot
	var err error
	for i := 0; i < 2 && err == nil; i++ {
		err = pool.Submit(ctx, models.DeliveryJob{CustomerID: 3 + i})
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected Submit to block until deadline, got %v", err)
	}

	close(release)
	testutil.AssertNoError(t, pool.Close(context.Background()))
}

func TestPool_SubmitAfterClose(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pool := NewPool(1, 0, func(context.Context, models.DeliveryJob) error { return nil }, logger)

	testutil.AssertNoError(t, pool.Close(context.Background()))
	testutil.AssertNoError(t, pool.Close(context.Background()))

	err := pool.Submit(context.Background(), models.DeliveryJob{})
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Expected ErrPoolClosed but got %v", err)
	}
}

func TestPool_HandlerErrorsAreLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()

	var mu sync.Mutex
	seen := 0
	pool := NewPool(2, 4, func(context.Context, models.DeliveryJob) error {
		mu.Lock()
		seen++
		mu.Unlock()
		return errors.New("boom")
	}, logger)

	testutil.AssertNoError(t, pool.Submit(context.Background(), models.DeliveryJob{CampaignID: 4, CustomerID: 2}))
	testutil.AssertNoError(t, pool.Close(context.Background()))

	testutil.AssertEqual(t, seen, 1)
	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "delivery job failed" {
			found = true
			testutil.AssertEqual(t, entry.Data["customer_id"], 2)
		}
	}
	if !found {
		t.Error("Expected handler error to be logged")
	}
}
