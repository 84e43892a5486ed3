package quota

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// 拒绝原因
const (
	ReasonCount       = "count"
	ReasonStorage     = "storage"
	ReasonCompression = "compression"
)

const bytesPerMB = 1024 * 1024 // 二进制兆字节，与展示口径一致

// UsageLister 使用量列举协作者（由存储后端实现）
type UsageLister interface {
	// ListUsage 返回某所有者当前的对象数量与总字节数
	ListUsage(ctx context.Context, ownerID string) (count int, totalBytes int64, err error)
}

// Normalizer 将候选文件规格化为最终存储形态（压缩后）
type Normalizer interface {
	Normalize(ctx context.Context, name string, data []byte) (*NormalizedFile, error)
}

// Candidate 待准入的候选文件
type Candidate struct {
	Name string
	Size int64
	Data []byte
}

// NormalizedFile 规格化结果
type NormalizedFile struct {
	Name     string
	Data     []byte
	Size     int64
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// Usage 某所有者的使用量快照
type Usage struct {
	Count     int
	Bytes     int64
	FetchedAt time.Time
}

// Limits 配额上限
type Limits struct {
	MaxCount      int
	MaxBytes      int64
	MaxBatchFiles int
	// StrictCompression 为 true 时任一文件压缩失败即拒绝整批
	StrictCompression bool
}

// Decision 准入决定
type Decision struct {
	Admitted bool
	Reason   string
	Message  string
	// Failures 压缩失败的文件名
	Failures []string
	// Files 获准上传的规格化文件（仅 Admitted 时非空）
	Files []*NormalizedFile

	CurrentCount int
	MaxCount     int
	UsedBytes    int64
	MaxBytes     int64
}

// Tracker 配额与使用量跟踪器。
// 快照、在途请求去重均为实例自有状态，外部只能通过公开方法变更。
type Tracker struct {
	lister     UsageLister
	normalizer Normalizer
	limits     Limits
	ttl        time.Duration

	mu        sync.RWMutex
	snapshots map[string]Usage
	// gens 按所有者递增的失效代数；epoch 随 Clear 递增。
	// 在途列举在 settle 时比对两者，抓取期间发生过失效则丢弃结果。
	gens  map[string]uint64
	epoch uint64
	group singleflight.Group
}

// NewTracker 创建跟踪器
func NewTracker(lister UsageLister, normalizer Normalizer, limits Limits, ttl time.Duration) *Tracker {
	return &Tracker{
		lister:     lister,
		normalizer: normalizer,
		limits:     limits,
		ttl:        ttl,
		snapshots:  make(map[string]Usage),
		gens:       make(map[string]uint64),
	}
}

// Limits 返回当前配额上限
func (t *Tracker) Limits() Limits {
	return t.limits
}

// Usage 返回某所有者的使用量。
// 新鲜度窗口内直接命中快照；否则发起列举，窗口外的并发调用方通过
// singleflight 附着在同一次在途请求上，settle 后在途标记无条件移除。
func (t *Tracker) Usage(ctx context.Context, ownerID string) (Usage, error) {
	t.mu.RLock()
	snap, ok := t.snapshots[ownerID]
	t.mu.RUnlock()

	if ok && time.Since(snap.FetchedAt) < t.ttl {
		return snap, nil
	}

	v, err, _ := t.group.Do(ownerID, func() (interface{}, error) {
		t.mu.RLock()
		gen, epoch := t.gens[ownerID], t.epoch
		t.mu.RUnlock()

		count, bytes, err := t.lister.ListUsage(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		fresh := Usage{Count: count, Bytes: bytes, FetchedAt: time.Now()}
		t.mu.Lock()
		// 抓取期间发生过失效的话结果已是变更前的旧账，不能存为新鲜快照，
		// 否则 TTL 窗口内的下一次读取会看到变更前的计数
		if t.gens[ownerID] == gen && t.epoch == epoch {
			t.snapshots[ownerID] = fresh
		}
		t.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("failed to list usage: %w", err)
	}

	return v.(Usage), nil
}

// CanAdmit 判定一批候选文件能否上传。
// 判定顺序：数量上限 → 压缩规格化 → 字节上限。压缩失败绝不静默回退到
// 原始大小。数量超限时不触发任何规格化（也就不会有存储调用）。
func (t *Tracker) CanAdmit(ctx context.Context, ownerID string, candidates []Candidate) (*Decision, error) {
	usage, err := t.Usage(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	decision := &Decision{
		CurrentCount: usage.Count,
		MaxCount:     t.limits.MaxCount,
		UsedBytes:    usage.Bytes,
		MaxBytes:     t.limits.MaxBytes,
	}

	// 1. 数量上限
	if usage.Count+len(candidates) > t.limits.MaxCount {
		remaining := t.limits.MaxCount - usage.Count
		if remaining < 0 {
			remaining = 0
		}
		decision.Reason = ReasonCount
		decision.Message = fmt.Sprintf("batch of %d exceeds remaining %d image slots (%d/%d used)",
			len(candidates), remaining, usage.Count, t.limits.MaxCount)
		return decision, nil
	}

	// 2. 规格化；失败文件逐一记录
	normalized := make([]*NormalizedFile, 0, len(candidates))
	var failures []string
	for _, c := range candidates {
		nf, err := t.normalizer.Normalize(ctx, c.Name, c.Data)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", c.Name, err))
			continue
		}
		normalized = append(normalized, nf)
	}

	if len(failures) > 0 {
		decision.Failures = failures
		if t.limits.StrictCompression || len(normalized) == 0 {
			decision.Reason = ReasonCompression
			decision.Message = fmt.Sprintf("compression failed for %d file(s): %s",
				len(failures), strings.Join(failures, "; "))
			return decision, nil
		}
		// 宽松策略：仅剔除失败文件，其余继续
	}

	// 3. 字节上限
	var sum int64
	for _, nf := range normalized {
		sum += nf.Size
	}
	if usage.Bytes+sum > t.limits.MaxBytes {
		available := t.limits.MaxBytes - usage.Bytes
		if available < 0 {
			available = 0
		}
		decision.Reason = ReasonStorage
		decision.Message = fmt.Sprintf("storage quota exceeded: %.1f MB available, batch needs %.1f MB",
			float64(available)/bytesPerMB, float64(sum)/bytesPerMB)
		return decision, nil
	}

	decision.Admitted = true
	decision.Files = normalized
	return decision, nil
}

// Invalidate 使某所有者的快照立即失效（覆盖新鲜度窗口），
// 任何成功的上传或删除之后必须调用。
func (t *Tracker) Invalidate(ownerID string) {
	t.mu.Lock()
	delete(t.snapshots, ownerID)
	t.gens[ownerID]++
	t.mu.Unlock()
	t.group.Forget(ownerID)
}

// Clear 清空全部快照
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.snapshots = make(map[string]Usage)
	t.epoch++
	t.mu.Unlock()
}
