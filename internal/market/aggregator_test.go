package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// stubFetcher records per-symbol call counts and serves canned results.
type stubFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	stats map[string]ReturnStats
	errs  map[string]error
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		calls: make(map[string]int),
		stats: make(map[string]ReturnStats),
		errs:  make(map[string]error),
	}
}

func (f *stubFetcher) FetchReturns(ctx context.Context, symbol string, lookbackDays int) (ReturnStats, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.mu.Unlock()

	if err, ok := f.errs[symbol]; ok {
		return ReturnStats{}, err
	}
	return f.stats[symbol], nil
}

func (f *stubFetcher) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func TestResolveCoversEverySymbol(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.stats["NSE:AAA-EQ"] = statsOf(2)
	fetcher.errs["NSE:BBB-EQ"] = &UpstreamError{Status: 500, Reason: "boom"}

	agg := NewAggregator(NewCache(time.Minute), fetcher, 30, zerolog.Nop())
	results := agg.Resolve(context.Background(), []string{"NSE:AAA-EQ", "NSE:BBB-EQ"})

	if len(results) != 2 {
		t.Fatalf("每个符号都必须有结果, 实际 %d 条", len(results))
	}
	if !results["NSE:AAA-EQ"].OneDay.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("成功符号的回报不正确: %s", results["NSE:AAA-EQ"].OneDay)
	}
	if !results["NSE:BBB-EQ"].IsZero() {
		t.Fatal("失败符号应降级为零回报而不是缺席")
	}
}

func TestResolveUsesCacheWithinTTL(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.stats["NSE:AAA-EQ"] = statsOf(2)

	clock := time.Now()
	agg := NewAggregator(NewCache(time.Minute), fetcher, 30, zerolog.Nop())
	agg.now = func() time.Time { return clock }

	agg.Resolve(context.Background(), []string{"NSE:AAA-EQ"})
	agg.Resolve(context.Background(), []string{"NSE:AAA-EQ"})

	if got := fetcher.callCount("NSE:AAA-EQ"); got != 1 {
		t.Fatalf("TTL 内的第二次解析不应触发上游请求, 实际调用 %d 次", got)
	}

	clock = clock.Add(61 * time.Second)
	agg.Resolve(context.Background(), []string{"NSE:AAA-EQ"})

	if got := fetcher.callCount("NSE:AAA-EQ"); got != 2 {
		t.Fatalf("TTL 过期后应重新请求上游, 实际调用 %d 次", got)
	}
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.errs["NSE:AAA-EQ"] = errors.New("upstream down")

	agg := NewAggregator(NewCache(time.Minute), fetcher, 30, zerolog.Nop())

	agg.Resolve(context.Background(), []string{"NSE:AAA-EQ"})
	agg.Resolve(context.Background(), []string{"NSE:AAA-EQ"})

	if got := fetcher.callCount("NSE:AAA-EQ"); got != 2 {
		t.Fatalf("失败结果不应写入缓存, 期望 2 次上游调用, 实际 %d", got)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	agg := NewAggregator(NewCache(time.Minute), newStubFetcher(), 30, zerolog.Nop())
	if results := agg.Resolve(context.Background(), nil); len(results) != 0 {
		t.Fatalf("空输入应返回空结果, 实际 %d 条", len(results))
	}
}
