package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeLister struct {
	count int
	bytes int64
	err   error
	calls int
}

func (f *fakeLister) ListUsage(ctx context.Context, ownerID string) (int, int64, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.count, f.bytes, nil
}

// passthroughNormalizer 原样返回数据，可选地对指定文件名报错
type passthroughNormalizer struct {
	failNames map[string]bool
	// shrinkTo 非零时所有产物视为该大小（模拟压缩）
	shrinkTo int64
}

func (n *passthroughNormalizer) Normalize(ctx context.Context, name string, data []byte) (*NormalizedFile, error) {
	if n.failNames[name] {
		return nil, errors.New("cannot decode image")
	}
	size := int64(len(data))
	if n.shrinkTo > 0 {
		size = n.shrinkTo
	}
	return &NormalizedFile{
		Name:     name,
		Data:     data,
		Size:     size,
		MimeType: "image/webp",
		Ext:      ".webp",
	}, nil
}

func defaultLimits() Limits {
	return Limits{
		MaxCount:          50,
		MaxBytes:          10 * 1024 * 1024,
		MaxBatchFiles:     10,
		StrictCompression: true,
	}
}

func makeCandidates(n int, size int) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Candidate{
			Name: fmt.Sprintf("file-%d.png", i),
			Size: int64(size),
			Data: make([]byte, size),
		})
	}
	return out
}

func TestUsageSnapshotFreshness(t *testing.T) {
	lister := &fakeLister{count: 3, bytes: 1024}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		usage, err := tracker.Usage(ctx, "owner-a")
		if err != nil {
			t.Fatalf("Usage returned error: %v", err)
		}
		if usage.Count != 3 || usage.Bytes != 1024 {
			t.Fatalf("usage = %+v, want count 3 bytes 1024", usage)
		}
	}

	// 新鲜度窗口内重复调用不得触发第二次列举
	if lister.calls != 1 {
		t.Errorf("lister calls = %d, want 1", lister.calls)
	}
}

func TestUsageInvalidateOverridesFreshness(t *testing.T) {
	lister := &fakeLister{count: 3, bytes: 1024}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)

	ctx := context.Background()
	if _, err := tracker.Usage(ctx, "owner-a"); err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}

	lister.count = 4
	tracker.Invalidate("owner-a")

	usage, err := tracker.Usage(ctx, "owner-a")
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage.Count != 4 {
		t.Errorf("usage.Count = %d, want 4 after invalidation", usage.Count)
	}
	if lister.calls != 2 {
		t.Errorf("lister calls = %d, want 2", lister.calls)
	}
}

// blockingLister 首次调用在 entered/release 之间阻塞，按调用序返回 counts
type blockingLister struct {
	mu      sync.Mutex
	calls   int
	counts  []int
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLister) ListUsage(ctx context.Context, ownerID string) (int, int64, error) {
	l.mu.Lock()
	l.calls++
	n := l.calls
	l.mu.Unlock()

	if n == 1 {
		l.entered <- struct{}{}
		<-l.release
	}

	idx := n - 1
	if idx >= len(l.counts) {
		idx = len(l.counts) - 1
	}
	count := l.counts[idx]
	return count, int64(count) * 512, nil
}

func (l *blockingLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestUsageInvalidationDuringFetch(t *testing.T) {
	lister := &blockingLister{
		counts:  []int{3, 4},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := tracker.Usage(ctx, "owner-a"); err != nil {
			t.Errorf("in-flight Usage returned error: %v", err)
		}
	}()

	// 列举在途期间发生一次上传，真实计数从 3 变为 4
	<-lister.entered
	tracker.Invalidate("owner-a")
	close(lister.release)
	<-done

	// 在途结果不得存为新鲜快照：失效之后的下一次读取必须重新列举，
	// 看到变更后的计数
	usage, err := tracker.Usage(ctx, "owner-a")
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage.Count != 4 {
		t.Errorf("usage.Count = %d, want 4 after invalidation during fetch", usage.Count)
	}
	if got := lister.callCount(); got != 2 {
		t.Errorf("lister calls = %d, want 2", got)
	}
}

func TestUsageConcurrentCallersShareOneListing(t *testing.T) {
	lister := &blockingLister{
		counts:  []int{3},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)
	ctx := context.Background()

	const callers = 8
	results := make([]Usage, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tracker.Usage(ctx, "owner-a")
		}(i)
	}

	<-lister.entered
	close(lister.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d returned error: %v", i, errs[i])
		}
		if results[i].Count != 3 {
			t.Errorf("caller %d count = %d, want 3", i, results[i].Count)
		}
	}
	// 无快照时的并发调用方必须附着在同一次在途列举上
	if got := lister.callCount(); got != 1 {
		t.Errorf("lister calls = %d, want 1", got)
	}
}

func TestUsageRetriesAfterListerFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("storage unavailable")}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)
	ctx := context.Background()

	if _, err := tracker.Usage(ctx, "owner-a"); err == nil {
		t.Fatal("expected error from failed listing")
	}

	// settle 后在途标记已移除，失败不得被缓存
	lister.err = nil
	lister.count = 2
	lister.bytes = 200
	usage, err := tracker.Usage(ctx, "owner-a")
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage.Count != 2 {
		t.Errorf("usage.Count = %d, want 2 after lister recovered", usage.Count)
	}
	if lister.calls != 2 {
		t.Errorf("lister calls = %d, want 2", lister.calls)
	}
}

func TestUsageSnapshotsPerOwner(t *testing.T) {
	lister := &fakeLister{count: 1, bytes: 100}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)

	ctx := context.Background()
	if _, err := tracker.Usage(ctx, "owner-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := tracker.Usage(ctx, "owner-b"); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 2 {
		t.Errorf("lister calls = %d, want 2 (one per owner)", lister.calls)
	}
}

func TestCanAdmitCountLimit(t *testing.T) {
	// 48/50 已用，一批 3 张必须整批拒绝
	lister := &fakeLister{count: 48, bytes: 0}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)

	decision, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(3, 100))
	if err != nil {
		t.Fatalf("CanAdmit returned error: %v", err)
	}

	if decision.Admitted {
		t.Fatal("batch should be rejected")
	}
	if decision.Reason != ReasonCount {
		t.Errorf("reason = %s, want %s", decision.Reason, ReasonCount)
	}
	if !strings.Contains(decision.Message, "batch of 3") || !strings.Contains(decision.Message, "48/50") {
		t.Errorf("unexpected message: %s", decision.Message)
	}
}

func TestCanAdmitCountLimitSkipsNormalization(t *testing.T) {
	lister := &fakeLister{count: 50, bytes: 0}
	normalizer := &passthroughNormalizer{failNames: map[string]bool{"file-0.png": true}}
	tracker := NewTracker(lister, normalizer, defaultLimits(), time.Minute)

	decision, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(1, 100))
	if err != nil {
		t.Fatalf("CanAdmit returned error: %v", err)
	}

	// 数量先行，压缩失败不应出现在结果里
	if decision.Reason != ReasonCount {
		t.Errorf("reason = %s, want %s", decision.Reason, ReasonCount)
	}
	if len(decision.Failures) != 0 {
		t.Errorf("failures = %v, want none", decision.Failures)
	}
}

func TestCanAdmitStorageLimit(t *testing.T) {
	// 已用 9.5 MB，规格化后 0.8 MB 的批次必须拒绝
	lister := &fakeLister{count: 1, bytes: int64(9.5 * 1024 * 1024)}
	normalizer := &passthroughNormalizer{shrinkTo: 800 * 1024}
	tracker := NewTracker(lister, normalizer, defaultLimits(), time.Minute)

	decision, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(1, 5*1024*1024))
	if err != nil {
		t.Fatalf("CanAdmit returned error: %v", err)
	}

	if decision.Admitted {
		t.Fatal("batch should be rejected")
	}
	if decision.Reason != ReasonStorage {
		t.Errorf("reason = %s, want %s", decision.Reason, ReasonStorage)
	}
	if !strings.Contains(decision.Message, "0.5 MB available") {
		t.Errorf("message should report 0.5 MB available, got: %s", decision.Message)
	}
}

func TestCanAdmitStorageLimitUsesNormalizedSize(t *testing.T) {
	// 原始 5 MB 压到 100 KB，以压缩后大小判定应通过
	lister := &fakeLister{count: 1, bytes: int64(9.5 * 1024 * 1024)}
	normalizer := &passthroughNormalizer{shrinkTo: 100 * 1024}
	tracker := NewTracker(lister, normalizer, defaultLimits(), time.Minute)

	decision, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(1, 5*1024*1024))
	if err != nil {
		t.Fatalf("CanAdmit returned error: %v", err)
	}

	if !decision.Admitted {
		t.Fatalf("batch should be admitted, got %s: %s", decision.Reason, decision.Message)
	}
	if len(decision.Files) != 1 {
		t.Errorf("files = %d, want 1", len(decision.Files))
	}
}

func TestCanAdmitStrictCompressionFailure(t *testing.T) {
	lister := &fakeLister{count: 0, bytes: 0}
	normalizer := &passthroughNormalizer{failNames: map[string]bool{"file-1.png": true}}
	tracker := NewTracker(lister, normalizer, defaultLimits(), time.Minute)

	decision, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(3, 100))
	if err != nil {
		t.Fatalf("CanAdmit returned error: %v", err)
	}

	// 严格模式：单个文件失败即整批拒绝，失败文件逐一列出
	if decision.Admitted {
		t.Fatal("batch should be rejected in strict mode")
	}
	if decision.Reason != ReasonCompression {
		t.Errorf("reason = %s, want %s", decision.Reason, ReasonCompression)
	}
	if len(decision.Failures) != 1 || !strings.Contains(decision.Failures[0], "file-1.png") {
		t.Errorf("failures = %v, want file-1.png entry", decision.Failures)
	}
}

func TestCanAdmitLenientCompressionFailure(t *testing.T) {
	limits := defaultLimits()
	limits.StrictCompression = false

	lister := &fakeLister{count: 0, bytes: 0}
	normalizer := &passthroughNormalizer{failNames: map[string]bool{"file-1.png": true}}
	tracker := NewTracker(lister, normalizer, limits, time.Minute)

	decision, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(3, 100))
	if err != nil {
		t.Fatalf("CanAdmit returned error: %v", err)
	}

	if !decision.Admitted {
		t.Fatalf("batch should be admitted in lenient mode, got %s", decision.Message)
	}
	if len(decision.Files) != 2 {
		t.Errorf("files = %d, want 2 (failed file dropped)", len(decision.Files))
	}
	if len(decision.Failures) != 1 {
		t.Errorf("failures = %d, want 1", len(decision.Failures))
	}
}

func TestCanAdmitListerError(t *testing.T) {
	lister := &fakeLister{err: errors.New("storage unavailable")}
	tracker := NewTracker(lister, &passthroughNormalizer{}, defaultLimits(), time.Minute)

	if _, err := tracker.CanAdmit(context.Background(), "owner-a", makeCandidates(1, 100)); err == nil {
		t.Fatal("expected error when usage listing fails")
	}
}
