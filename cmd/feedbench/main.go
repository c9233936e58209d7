// feedbench 在进程内假后端上测量全量重载、feed 组装和并发点赞。
//
//	N=200 M=20 ROUNDS=50 CONC=8 go run ./cmd/feedbench
package main

import (
	"context"
	"fmt"
	"math"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/d60-Lab/moments/internal/feed"
	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/service"
	"github.com/d60-Lab/moments/internal/session"
	"github.com/d60-Lab/moments/internal/testutil/fakebackend"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	N := envInt("N", 200)          // 被关注的作者数
	M := envInt("M", 20)           // 每个作者的 moment 数
	ROUNDS := envInt("ROUNDS", 50) // 重载次数
	CONC := envInt("CONC", 8)      // 并发点赞 worker

	fb := fakebackend.NewBackend()
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	viewer := fb.SeedUser("viewer@example.com", "pw", "viewer")
	for i := 0; i < N; i++ {
		author := fb.SeedUser(fmt.Sprintf("a%04d@example.com", i), "pw", fmt.Sprintf("a%04d", i))
		fb.Seed("follows", fakebackend.Row{"follower_id": viewer, "following_id": author})
		for j := 0; j < M; j++ {
			fb.Seed("moments", fakebackend.Row{
				"user_id":   author,
				"image_url": fmt.Sprintf(`["https://img/%s/%d.jpg"]`, author, j),
				"caption":   fmt.Sprintf("moment %d", j),
			})
		}
	}

	ctx := context.Background()
	gw := gateway.New(srv.URL, fb.APIKey, session.NewMemoryStore())
	svc := service.NewCoordinator(gw, service.Options{})
	must(svc.SignIn(ctx, "viewer@example.com", "pw"))

	// reload
	reloads := make([]time.Duration, 0, ROUNDS)
	for i := 0; i < ROUNDS; i++ {
		st := time.Now()
		if err := svc.Reload(ctx); err != nil {
			panic(err)
		}
		reloads = append(reloads, time.Since(st))
	}

	// 纯内存组装
	state := svc.Snapshot()
	assembles := make([]time.Duration, 0, ROUNDS)
	var items []feed.Item
	for i := 0; i < ROUNDS; i++ {
		st := time.Now()
		items = feed.AssembleFeed(state.Moments, state.Profiles, state.Following, state.ViewerID)
		assembles = append(assembles, time.Since(st))
	}

	// 并发点赞：每个 moment 两个 worker 同时切换，验证不会产生重复行
	targets := items
	if len(targets) > 200 {
		targets = targets[:200]
	}
	jobs := make(chan model.ID, 2*len(targets))
	for _, it := range targets {
		jobs <- it.Moment.ID
		jobs <- it.Moment.ID
	}
	close(jobs)

	var (
		mu    sync.Mutex
		likes []time.Duration
		wg    sync.WaitGroup
	)
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				st := time.Now()
				_, _ = svc.ToggleLike(ctx, id)
				d := time.Since(st)
				mu.Lock()
				likes = append(likes, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	likeDur := time.Since(t0)

	dup := 0
	seen := map[string]bool{}
	for _, r := range fb.Rows("likes") {
		k := fmt.Sprint(r["user_id"], "/", r["moment_id"])
		if seen[k] {
			dup++
		}
		seen[k] = true
	}

	fmt.Printf("N=%d, M=%d, ROUNDS=%d, CONC=%d\n", N, M, ROUNDS, CONC)
	fmt.Printf("Feed items: %d\n", len(items))
	fmt.Printf("Reload latency p50: %v, p95: %v, p99: %v\n", pct(reloads, 0.50), pct(reloads, 0.95), pct(reloads, 0.99))
	fmt.Printf("Assemble latency p50: %v, p95: %v, p99: %v\n", pct(assembles, 0.50), pct(assembles, 0.95), pct(assembles, 0.99))
	fmt.Printf("Toggle like total: %v, ops: %d, p50: %v, p99: %v, like rows: %d, duplicates: %d\n",
		likeDur, len(likes), pct(likes, 0.50), pct(likes, 0.99), len(fb.Rows("likes")), dup)
}
