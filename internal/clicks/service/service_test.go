package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"kiosk-service/internal/clicks/db"
)

func setupTestService(t *testing.T) (*ClickService, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	clickDB := &db.DB{Bun: bunDB}
	if err := clickDB.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create clicks table: %v", err)
	}

	return NewClickService(clickDB, 4, time.UTC, nil), bunDB
}

func TestRecordClickInvalidButton(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	for _, id := range []int{0, -1, 5} {
		event, err := svc.RecordClick(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidButton)
		assert.Nil(t, event)
	}

	// A rejected click never consumes a sequence number.
	count, err := svc.CountAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecordClickAssignsSequence(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC)
	}

	event, err := svc.RecordClick(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), event.Seq)
	assert.Equal(t, 2, event.ButtonID)
	assert.Equal(t, "2025-03-10", event.Date)
	assert.Equal(t, "10:15", event.Time)
	assert.Equal(t, 10, event.Hour)

	event, err = svc.RecordClick(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), event.Seq)
}

func TestRecordClickResumesSequenceAfterRestart(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordClick(context.Background(), 1)
		require.NoError(t, err)
	}

	// A fresh service over the same store picks up where the log left off.
	restarted := NewClickService(svc.DB, 4, time.UTC, nil)
	event, err := restarted.RecordClick(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), event.Seq)
}

func TestRecordClickConcurrentSequenceIsGapFree(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	const workers = 50
	var wg sync.WaitGroup
	seqs := make(chan int64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event, err := svc.RecordClick(context.Background(), 1)
			assert.NoError(t, err)
			seqs <- event.Seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "duplicate sequence %d", seq)
		seen[seq] = true
	}
	// Exactly 1..workers, no gaps, no duplicates.
	for seq := int64(1); seq <= workers; seq++ {
		assert.True(t, seen[seq], "missing sequence %d", seq)
	}
}

func TestDayBoundary(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	}
	before, err := svc.RecordClick(context.Background(), 1)
	require.NoError(t, err)

	svc.now = func() time.Time {
		return time.Date(2025, 3, 11, 0, 2, 0, 0, time.UTC)
	}
	after, err := svc.RecordClick(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", before.Date)
	assert.Equal(t, "2025-03-11", after.Date)
	assert.Equal(t, before.Seq+1, after.Seq)

	// The new day starts counting from zero.
	count, err := svc.Count(context.Background(), "2025-03-11")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	iso, display := svc.Today()
	assert.Equal(t, "2025-03-11", iso)
	assert.Equal(t, "11/03/2025", display)
}

type stubPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
}

func (p *stubPublisher) Publish(topic string, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return nil
}

// blockingPublisher parks every Publish call until released, signalling each
// entry so the test can observe progress.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(string, string, []byte) error {
	p.entered <- struct{}{}
	<-p.release
	return nil
}

func TestRecordClickStalledPublisherDoesNotBlockAppends(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	pub := &blockingPublisher{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	svc.Kafka = pub
	svc.Topic = "kiosk.clicks.recorded"

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := svc.RecordClick(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}

	// Both appends must clear the critical section and reach the stream,
	// even though the first publish is still parked in the broker.
	for i := 0; i < 2; i++ {
		select {
		case <-pub.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("append blocked behind a stalled publisher")
		}
	}

	close(pub.release)
	for i := 0; i < 2; i++ {
		<-done
	}

	count, err := svc.CountAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordClickPublishesToStream(t *testing.T) {
	svc, bunDB := setupTestService(t)
	defer bunDB.Close()

	pub := &stubPublisher{}
	svc.Kafka = pub
	svc.Topic = "kiosk.clicks.recorded"

	_, err := svc.RecordClick(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "kiosk.clicks.recorded", pub.topics[0])
	assert.Equal(t, "1", pub.keys[0])
}
